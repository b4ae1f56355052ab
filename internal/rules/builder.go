package rules

// Patch lists the fields Update may change. Nil fields are left untouched.
type Patch struct {
	Field    *string
	Operator *string
	Value    *string
	Enabled  *bool
}

func (p Patch) apply(n *Node) *Node {
	cp := *n
	if p.Field != nil && !n.IsGroup() {
		cp.Field = *p.Field
	}
	if p.Operator != nil {
		cp.Operator = *p.Operator
	}
	if p.Value != nil && !n.IsGroup() {
		cp.Value = *p.Value
	}
	if p.Enabled != nil {
		cp.Enabled = *p.Enabled
	}
	return &cp
}

// AddCondition returns a copy of group with cond appended to its children.
func AddCondition(group, cond *Node) *Node {
	return appendChild(group, cond)
}

// AddGroup returns a copy of parent with child appended to its children.
func AddGroup(parent, child *Node) *Node {
	return appendChild(parent, child)
}

func appendChild(group, child *Node) *Node {
	if group == nil || child == nil || !group.IsGroup() {
		return group
	}
	cp := *group
	cp.Children = make([]*Node, 0, len(group.Children)+1)
	cp.Children = append(cp.Children, group.Children...)
	cp.Children = append(cp.Children, child)
	return &cp
}

// Insert appends child to the group identified by parentID. The tree is returned
// unchanged when the parent does not exist, is not a group, or the child's id is
// already taken.
func Insert(tree *Node, parentID string, child *Node) *Node {
	if child == nil || FindByID(tree, parentID) == nil {
		return tree
	}
	if FindByID(tree, child.ID) != nil {
		return tree
	}
	return rewrite(tree, parentID, func(n *Node) *Node {
		return appendChild(n, child)
	})
}

// FindByID searches the tree depth-first.
func FindByID(tree *Node, id string) *Node {
	var found *Node
	Walk(tree, func(n *Node) bool {
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Update returns a new tree where the node with the given id is patched. Only the
// path from the root to that node is copied; every other branch is shared.
func Update(tree *Node, id string, patch Patch) *Node {
	return rewrite(tree, id, patch.apply)
}

// Toggle flips the enabled flag of the node, or sets it when value is non-nil.
func Toggle(tree *Node, id string, value *bool) *Node {
	return rewrite(tree, id, func(n *Node) *Node {
		cp := *n
		if value != nil {
			cp.Enabled = *value
		} else {
			cp.Enabled = !n.Enabled
		}
		return &cp
	})
}

// Delete removes the node with the given id. Deleting the root is a no-op.
func Delete(tree *Node, id string) *Node {
	if tree == nil || id == tree.ID || id == RootID {
		return tree
	}
	if FindByID(tree, id) == nil {
		return tree
	}
	return remove(tree, id)
}

func remove(n *Node, id string) *Node {
	if !n.IsGroup() || len(n.Children) == 0 {
		return n
	}

	changed := false
	children := make([]*Node, 0, len(n.Children))
	for _, child := range n.Children {
		if child.ID == id {
			changed = true
			continue
		}
		next := remove(child, id)
		if next != child {
			changed = true
		}
		children = append(children, next)
	}

	if !changed {
		return n
	}
	cp := *n
	cp.Children = children
	return &cp
}

// rewrite replaces the node with the given id by fn(node), copying its ancestors.
// When the id is absent the original tree is returned as is.
func rewrite(n *Node, id string, fn func(*Node) *Node) *Node {
	if n == nil {
		return nil
	}
	if n.ID == id {
		return fn(n)
	}
	for i, child := range n.Children {
		next := rewrite(child, id, fn)
		if next == child {
			continue
		}
		cp := *n
		cp.Children = make([]*Node, len(n.Children))
		copy(cp.Children, n.Children)
		cp.Children[i] = next
		return &cp
	}
	return n
}
