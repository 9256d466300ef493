package pairing

import "github.com/emirpasic/gods/stacks/arraystack"

// nilNode marks an absent child or sibling link.
const nilNode = -1

type node[T any] struct {
	item    T
	child   int
	sibling int
}

// Pool is an arena of heap nodes addressed by index. Released indices are kept
// on a free-list and handed out again before the arena grows, so a single Pool
// can be shared by every heap holding the same item type.
type Pool[T any] struct {
	nodes []node[T]
	free  *arraystack.Stack
}

// NewPool creates an empty node pool.
func NewPool[T any]() *Pool[T] {
	return &Pool[T]{free: arraystack.New()}
}

// Cap returns the number of nodes ever allocated by the pool.
func (p *Pool[T]) Cap() int { return len(p.nodes) }

// Free returns the number of nodes waiting for reuse.
func (p *Pool[T]) Free() int { return p.free.Size() }

// InUse returns the number of nodes currently held by heaps.
func (p *Pool[T]) InUse() int { return len(p.nodes) - p.free.Size() }

func (p *Pool[T]) reserve(item T) int {
	if v, ok := p.free.Pop(); ok {
		i := v.(int)
		p.nodes[i] = node[T]{item: item, child: nilNode, sibling: nilNode}
		return i
	}
	p.nodes = append(p.nodes, node[T]{item: item, child: nilNode, sibling: nilNode})
	return len(p.nodes) - 1
}

func (p *Pool[T]) release(i int) {
	var zero T
	p.nodes[i] = node[T]{item: zero, child: nilNode, sibling: nilNode}
	p.free.Push(i)
}

func (p *Pool[T]) at(i int) *node[T] { return &p.nodes[i] }
