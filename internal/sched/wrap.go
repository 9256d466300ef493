package sched

// Wrap combines a main body with optional sub-bodies around every step.
//
// before, when set, runs to completion ahead of each main step; every
// instruction it yields is passed on, so it can delay, await or complete the
// task. after, when set, receives each instruction of the main body and
// returns a body whose instructions replace it.
func Wrap(main Entry, before Entry, after func(Instruction) Entry) Entry {
	return func(tc *Context) Body {
		return &wrapper{
			tc:     tc,
			main:   main(tc),
			before: before,
			after:  after,
		}
	}
}

type wrapper struct {
	tc     *Context
	main   Body
	before Entry
	after  func(Instruction) Entry

	pre     Body // running before-body, nil between steps
	preDone bool // before-body already ran for the pending main step
	post    Body // running after-body
}

func (w *wrapper) Step() (Instruction, error) {
	for {
		if w.post != nil {
			ins, err := w.post.Step()
			if err != nil || ins.kind != KindEnd {
				return ins, err
			}
			w.post = nil
			continue
		}

		if w.before != nil && !w.preDone {
			if w.pre == nil {
				w.pre = w.before(w.tc)
			}
			ins, err := w.pre.Step()
			if err != nil || ins.kind != KindEnd {
				return ins, err
			}
			w.pre = nil
			w.preDone = true
		}

		ins, err := w.main.Step()
		if err != nil || ins.kind == KindEnd {
			return ins, err
		}
		w.preDone = false

		if w.after == nil {
			return ins, nil
		}
		w.post = w.after(ins)(w.tc)
	}
}

func (w *wrapper) Release() {
	for _, b := range []Body{w.main, w.pre, w.post} {
		if r, ok := b.(releaser); ok {
			r.Release()
		}
	}
}
