// Package pairing implements a meldable min-heap (pairing heap) whose nodes
// live in a shared, index-addressed arena.
package pairing

import "errors"

// ErrEmptyQueue is returned when peeking or extracting from an empty heap.
var ErrEmptyQueue = errors.New("pairing: empty queue")

// Heap is a pairing heap ordered by cmp: the item for which cmp reports the
// smallest value is extracted first. Heap is not safe for concurrent use.
type Heap[T any] struct {
	cmp   func(a, b T) int
	pool  *Pool[T]
	root  int
	count int
}

// New creates an empty heap drawing its nodes from pool. A nil pool gives the
// heap a private one.
func New[T any](cmp func(a, b T) int, pool *Pool[T]) *Heap[T] {
	if pool == nil {
		pool = NewPool[T]()
	}
	return &Heap[T]{cmp: cmp, pool: pool, root: nilNode}
}

// Len returns the number of items in the heap.
func (h *Heap[T]) Len() int { return h.count }

// Insert adds item to the heap in O(1).
func (h *Heap[T]) Insert(item T) {
	n := h.pool.reserve(item)
	h.root = h.meld(h.root, n)
	h.count++
}

// PeekMin returns the minimum item without removing it.
func (h *Heap[T]) PeekMin() (T, error) {
	if h.root == nilNode {
		var zero T
		return zero, ErrEmptyQueue
	}
	return h.pool.at(h.root).item, nil
}

// TryPeek is PeekMin reporting emptiness as a boolean.
func (h *Heap[T]) TryPeek() (T, bool) {
	item, err := h.PeekMin()
	return item, err == nil
}

// ExtractMin removes and returns the minimum item in O(log n) amortized.
func (h *Heap[T]) ExtractMin() (T, error) {
	if h.root == nilNode {
		var zero T
		return zero, ErrEmptyQueue
	}
	root := h.pool.at(h.root)
	item := root.item
	old := h.root
	h.root = h.combine(root.child)
	h.pool.release(old)
	h.count--
	return item, nil
}

// TryExtract is ExtractMin reporting emptiness as a boolean.
func (h *Heap[T]) TryExtract() (T, bool) {
	item, err := h.ExtractMin()
	return item, err == nil
}

// Clear removes every item and returns all nodes to the pool.
func (h *Heap[T]) Clear() {
	stack := []int{}
	if h.root != nilNode {
		stack = append(stack, h.root)
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := h.pool.at(i)
		if n.child != nilNode {
			stack = append(stack, n.child)
		}
		if n.sibling != nilNode {
			stack = append(stack, n.sibling)
		}
		h.pool.release(i)
	}
	h.root = nilNode
	h.count = 0
}

// meld joins two detached roots; the greater one becomes the first child of
// the other.
func (h *Heap[T]) meld(a, b int) int {
	if a == nilNode {
		return b
	}
	if b == nilNode {
		return a
	}
	if h.cmp(h.pool.at(a).item, h.pool.at(b).item) < 0 {
		return h.setChild(a, b)
	}
	return h.setChild(b, a)
}

func (h *Heap[T]) setChild(parent, child int) int {
	p := h.pool.at(parent)
	h.pool.at(child).sibling = p.child
	p.child = child
	return parent
}

// combine rebuilds a single tree from a sibling chain using the two-pass
// scheme: meld pairs left to right, then fold the results right to left.
func (h *Heap[T]) combine(first int) int {
	if first == nilNode {
		return nilNode
	}

	// First pass. Melded pairs are pushed onto a list threaded through the
	// sibling links, so the list ends up in right-to-left order.
	merged := nilNode
	for n := first; n != nilNode; {
		a := h.pool.at(n)
		pair := a.sibling
		if pair == nilNode {
			a.sibling = merged
			merged = n
			break
		}
		b := h.pool.at(pair)
		next := b.sibling
		a.sibling = nilNode
		b.sibling = nilNode

		m := h.meld(n, pair)
		h.pool.at(m).sibling = merged
		merged = m
		n = next
	}

	// Second pass.
	root := merged
	rest := h.pool.at(root).sibling
	h.pool.at(root).sibling = nilNode
	for rest != nilNode {
		next := h.pool.at(rest).sibling
		h.pool.at(rest).sibling = nilNode
		root = h.meld(root, rest)
		rest = next
	}
	return root
}
