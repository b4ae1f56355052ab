package adapter

import (
	"fmt"
	"strings"

	"github.com/spigell/candidate-screener/internal/rules"
	"github.com/spigell/candidate-screener/internal/simple"
	"github.com/spigell/candidate-screener/internal/unified"
)

// LogicalToUnified maps every condition to a unified rule with weight 50 and an
// inferred category, and every group to a group with the same combinator. The
// hard-rule flag is left for normalization to infer.
func LogicalToUnified(tree *rules.Node) *unified.Rule {
	if tree == nil {
		return emptyUnifiedRoot()
	}
	return logicalToUnified(tree, 0)
}

func logicalToUnified(n *rules.Node, order int) *unified.Rule {
	if n.IsGroup() {
		group := &unified.Rule{
			ID:       n.ID,
			Kind:     unified.KindGroup,
			Operator: strings.ToUpper(n.Operator),
			Enabled:  n.Enabled,
			Order:    order,
			Rules:    make([]*unified.Rule, 0, len(n.Children)),
		}
		for i, child := range n.Children {
			group.Rules = append(group.Rules, logicalToUnified(child, i))
		}
		return group
	}

	weight := DefaultLogicalWeight
	return &unified.Rule{
		ID:       n.ID,
		Kind:     unified.KindRule,
		Category: InferCategory(n.Field),
		Field:    n.Field,
		Operator: n.Operator,
		Value:    unified.Single(n.Value),
		Weight:   &weight,
		Enabled:  n.Enabled,
		Order:    order,
	}
}

// UnifiedToLogical drops weight, category, order and hard-rule flags. A rule
// with several values becomes a group of single-value conditions: OR for positive
// operators, AND for negative ones.
func UnifiedToLogical(root *unified.Rule) *rules.Node {
	if root == nil {
		return rules.NewRoot()
	}
	if !root.IsGroup() {
		tree := rules.NewRoot()
		tree.Children = []*rules.Node{unifiedToLogical(root)}
		return tree
	}
	return unifiedToLogical(root)
}

func unifiedToLogical(r *unified.Rule) *rules.Node {
	if r.IsGroup() {
		op := strings.ToUpper(strings.TrimSpace(r.Operator))
		if !rules.IsCombinator(op) {
			op = rules.And
		}
		group := &rules.Node{
			ID:       r.ID,
			Kind:     rules.KindGroup,
			Operator: op,
			Enabled:  r.Enabled,
			Children: make([]*rules.Node, 0, len(r.Rules)),
		}
		for _, child := range r.Rules {
			group.Children = append(group.Children, unifiedToLogical(child))
		}
		return group
	}

	if len(r.Value.Items) <= 1 {
		return &rules.Node{
			ID:       r.ID,
			Kind:     rules.KindCondition,
			Field:    r.Field,
			Operator: r.Operator,
			Value:    r.Value.First(),
			Enabled:  r.Enabled,
		}
	}

	combinator := rules.Or
	if rules.IsNegative(r.Operator) {
		combinator = rules.And
	}
	group := &rules.Node{
		ID:       r.ID,
		Kind:     rules.KindGroup,
		Operator: combinator,
		Enabled:  r.Enabled,
		Children: make([]*rules.Node, 0, len(r.Value.Items)),
	}
	for i, item := range r.Value.Items {
		group.Children = append(group.Children, &rules.Node{
			ID:       fmt.Sprintf("%s-%d", r.ID, i),
			Kind:     rules.KindCondition,
			Field:    r.Field,
			Operator: r.Operator,
			Value:    item,
			Enabled:  true,
		})
	}
	return group
}

// SimpleToUnified builds an AND root holding one contains-rule per simple rule.
// Keywords become the value list and mustMatch becomes the hard-rule flag.
// Rules of unknown categories are skipped.
func SimpleToUnified(cfg simple.Config) *unified.Rule {
	root := emptyUnifiedRoot()
	for _, sr := range cfg.Rules {
		category, ok := ToUnifiedCategory(sr.Category)
		if !ok {
			continue
		}

		weight := DefaultWeight(category)
		hard := sr.MustMatch
		rule := &unified.Rule{
			ID:         sr.ID,
			Kind:       unified.KindRule,
			Category:   category,
			Field:      FieldFor(sr.Category),
			Operator:   rules.OpContains,
			Value:      unified.List(sr.Keywords...),
			Weight:     &weight,
			Enabled:    sr.Enabled,
			IsHardRule: &hard,
			Order:      sr.Order,
		}
		if sr.PassScore != nil && sr.Category == simple.CoreKeyword {
			p := *sr.PassScore
			rule.PassScore = &p
		}
		root.Rules = append(root.Rules, rule)
	}
	return root
}

// UnifiedToSimple flattens the unified tree into simple rules. Rules without a
// simple category are dropped, groups are dissolved and any operator other than
// contains is lost.
func UnifiedToSimple(root *unified.Rule) simple.Config {
	cfg := simple.Config{Rules: []simple.Rule{}}
	order := 0
	unified.Walk(root, func(r *unified.Rule) bool {
		if r.IsGroup() {
			return true
		}
		category := r.Category
		if category == "" {
			category = InferCategory(r.Field)
		}
		sc, ok := ToSimpleCategory(category)
		if !ok {
			return true
		}

		sr := simple.Rule{
			ID:        r.ID,
			Category:  sc,
			Keywords:  append([]string{}, r.Value.Items...),
			MustMatch: r.Hard(),
			Enabled:   r.Enabled,
			Order:     order,
		}
		if r.PassScore != nil && sc == simple.CoreKeyword {
			p := *r.PassScore
			sr.PassScore = &p
		}
		cfg.Rules = append(cfg.Rules, sr)
		order++
		return true
	})
	return cfg
}

// Flatten returns the enabled leaf rules of a normalized tree in evaluation order.
// Rules below a disabled group are left out.
func Flatten(root *unified.Rule) []*unified.Rule {
	var out []*unified.Rule
	var visit func(r *unified.Rule)
	visit = func(r *unified.Rule) {
		if r == nil || !r.Enabled {
			return
		}
		if !r.IsGroup() {
			out = append(out, r)
			return
		}
		for _, child := range r.Rules {
			visit(child)
		}
	}
	visit(root)
	return out
}

func emptyUnifiedRoot() *unified.Rule {
	return &unified.Rule{
		ID:       rules.RootID,
		Kind:     unified.KindGroup,
		Operator: rules.And,
		Enabled:  true,
		Rules:    []*unified.Rule{},
	}
}
