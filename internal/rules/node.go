// Package rules implements the logical rule tree: an immutable tree of boolean
// conditions, the copy-on-write operations that edit it and the evaluator that
// matches candidate records against it.
package rules

import (
	"strings"

	"github.com/google/uuid"
)

// RootID is the id of the designated root group. The root can never be deleted.
const RootID = "root"

// Kind tells conditions and groups apart on the wire.
type Kind string

const (
	KindCondition Kind = "condition"
	KindGroup     Kind = "group"
)

// Group combinators.
const (
	And = "AND"
	Or  = "OR"
)

// Node is either a Condition (Field/Operator/Value) or a RuleGroup
// (Operator/Children). Nodes reachable from a published tree must not be mutated;
// every editing operation in this package returns a new tree.
type Node struct {
	ID       string  `json:"id"`
	Kind     Kind    `json:"type"`
	Field    string  `json:"field,omitempty"`
	Operator string  `json:"operator"`
	Value    string  `json:"value,omitempty"`
	Children []*Node `json:"children,omitempty"`
	Enabled  bool    `json:"enabled"`
}

// IsGroup reports whether the node is a rule group. Nodes without an explicit kind
// are groups when they carry an AND/OR combinator and no field.
func (n *Node) IsGroup() bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case KindGroup:
		return true
	case KindCondition:
		return false
	}
	return n.Field == "" && IsCombinator(n.Operator)
}

// IsCombinator reports whether op is AND or OR, case-insensitively.
func IsCombinator(op string) bool {
	op = strings.ToUpper(strings.TrimSpace(op))
	return op == And || op == Or
}

// NewID returns a fresh node id.
func NewID() string {
	return uuid.NewString()
}

// NewRoot returns an empty enabled AND root group.
func NewRoot() *Node {
	return &Node{ID: RootID, Kind: KindGroup, Operator: And, Enabled: true}
}

// NewCondition builds an enabled leaf condition with a fresh id.
func NewCondition(field, operator, value string) *Node {
	return &Node{
		ID:       NewID(),
		Kind:     KindCondition,
		Field:    field,
		Operator: operator,
		Value:    value,
		Enabled:  true,
	}
}

// NewGroup builds an enabled group with a fresh id. Unknown combinators become AND.
func NewGroup(operator string, children ...*Node) *Node {
	op := strings.ToUpper(strings.TrimSpace(operator))
	if !IsCombinator(op) {
		op = And
	}
	return &Node{
		ID:       NewID(),
		Kind:     KindGroup,
		Operator: op,
		Children: append([]*Node(nil), children...),
		Enabled:  true,
	}
}

// Clone returns a deep copy of the subtree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	cp := *n
	if n.Children != nil {
		cp.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			cp.Children[i] = child.Clone()
		}
	}
	return &cp
}

// Walk visits the subtree depth-first, parents before children. Returning false
// from fn stops the walk.
func Walk(n *Node, fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, child := range n.Children {
		if !Walk(child, fn) {
			return false
		}
	}
	return true
}

// Leaves returns every condition of the subtree in depth-first order.
func Leaves(n *Node) []*Node {
	var leaves []*Node
	Walk(n, func(node *Node) bool {
		if !node.IsGroup() {
			leaves = append(leaves, node)
		}
		return true
	})
	return leaves
}
