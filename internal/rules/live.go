package rules

import "sync/atomic"

// Live holds the published rule tree. Readers always observe a complete tree;
// writers replace it in a single swap.
type Live struct {
	tree atomic.Pointer[Node]
}

// NewLive publishes tree, or an empty root when tree is nil.
func NewLive(tree *Node) *Live {
	l := &Live{}
	if tree == nil {
		tree = NewRoot()
	}
	l.tree.Store(tree)
	return l
}

// Load returns the current tree. The result must be treated as read-only.
func (l *Live) Load() *Node {
	return l.tree.Load()
}

// Apply replaces the current tree with edit(current), retrying when a concurrent
// writer won the race. It returns the published tree.
func (l *Live) Apply(edit func(*Node) *Node) *Node {
	for {
		current := l.tree.Load()
		next := edit(current)
		if next == nil {
			next = NewRoot()
		}
		if l.tree.CompareAndSwap(current, next) {
			return next
		}
	}
}
