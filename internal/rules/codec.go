package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotGroup     = errors.New("root must be a rule group")
	ErrDuplicateID  = errors.New("duplicate rule id")
	ErrMissingID    = errors.New("rule id is required")
	ErrBadCondition = errors.New("condition must not have children")
)

// Serialize encodes the tree as JSON.
func Serialize(tree *Node) ([]byte, error) {
	if tree == nil {
		tree = NewRoot()
	}
	return json.Marshal(tree)
}

// Parse decodes and validates a tree.
func Parse(data []byte) (*Node, error) {
	tree, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := Validate(tree); err != nil {
		return nil, err
	}
	markKinds(tree)
	return tree, nil
}

// Decode decodes a tree checking only its shape. Ids may be missing or
// repeated and the root may be a bare condition, so the result is meant to go
// through normalization and Validate before it is evaluated.
func Decode(data []byte) (*Node, error) {
	tree, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := check(tree, false); err != nil {
		return nil, err
	}
	markKinds(tree)
	return tree, nil
}

func decode(data []byte) (*Node, error) {
	var tree Node
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decode rule tree: %w", err)
	}
	return &tree, nil
}

// Deserialize decodes a tree and never fails: malformed input yields NewRoot().
func Deserialize(data []byte) *Node {
	tree, err := Parse(data)
	if err != nil {
		return NewRoot()
	}
	return tree
}

// Validate checks that the tree is rooted in a group, that every node has an id,
// that ids are unique and that conditions carry no children. JSON decoding can not
// produce shared or cyclic nodes, so uniqueness of ids also rules out cycles for
// trees built through this package.
func Validate(tree *Node) error {
	if tree == nil || !tree.IsGroup() {
		return ErrNotGroup
	}
	return check(tree, true)
}

func check(tree *Node, ids bool) error {
	if tree == nil {
		return errors.New("nil rule node")
	}

	seen := make(map[string]struct{})
	visiting := make(map[*Node]struct{})

	var visit func(n *Node) error
	visit = func(n *Node) error {
		if n == nil {
			return errors.New("nil rule node")
		}
		if _, ok := visiting[n]; ok {
			return fmt.Errorf("cycle at rule %q", n.ID)
		}
		id := strings.TrimSpace(n.ID)
		if ids {
			if id == "" {
				return ErrMissingID
			}
			if _, ok := seen[id]; ok {
				return fmt.Errorf("%w: %s", ErrDuplicateID, id)
			}
			seen[id] = struct{}{}
		}

		if !n.IsGroup() {
			if len(n.Children) > 0 {
				return fmt.Errorf("%w: %s", ErrBadCondition, id)
			}
			return nil
		}

		visiting[n] = struct{}{}
		defer delete(visiting, n)
		for _, child := range n.Children {
			if err := visit(child); err != nil {
				return err
			}
		}
		return nil
	}

	return visit(tree)
}

// markKinds fills in the explicit node type for freshly decoded trees.
func markKinds(n *Node) {
	Walk(n, func(node *Node) bool {
		if node.Kind != "" {
			return true
		}
		if node.IsGroup() {
			node.Kind = KindGroup
			node.Operator = strings.ToUpper(node.Operator)
		} else {
			node.Kind = KindCondition
		}
		return true
	})
}
