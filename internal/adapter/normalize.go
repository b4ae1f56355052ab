package adapter

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/spigell/candidate-screener/internal/rules"
	"github.com/spigell/candidate-screener/internal/simple"
	"github.com/spigell/candidate-screener/internal/unified"
)

// Normalizer fills in the metadata raw rule sets are allowed to omit. Every pass
// is idempotent and returns a fresh value; inputs are never modified.
type Normalizer struct {
	// NewID generates ids for nodes that have none. Defaults to uuid.
	NewID func() string
}

// Normalize is a Normalizer with uuid ids.
var Normalize = Normalizer{}

func (n Normalizer) id() string {
	if n.NewID != nil {
		return n.NewID()
	}
	return uuid.NewString()
}

// Unified marks the root as a group, assigns missing or duplicate ids, resolves
// categories (inferred from the field when absent, Generic when unknown), fills
// default weights and hard-rule flags, canonicalizes operators and orders every
// group by its rules' order.
func (n Normalizer) Unified(root *unified.Rule) *unified.Rule {
	if root == nil {
		return emptyUnifiedRoot()
	}

	out := root.Clone()
	if !out.IsGroup() {
		out = &unified.Rule{Rules: []*unified.Rule{out}, Enabled: true, Operator: rules.And}
	}
	if strings.TrimSpace(out.ID) == "" {
		out.ID = rules.RootID
	}

	seen := make(map[string]struct{})
	var visit func(r *unified.Rule, root bool)
	visit = func(r *unified.Rule, root bool) {
		r.ID = n.uniqueID(r.ID, seen)

		if root || r.IsGroup() {
			r.Kind = unified.KindGroup
			r.Operator = combinator(r.Operator)
			r.Category = ""
			r.Weight = nil
			r.IsHardRule = nil
			r.PassScore = nil
			if r.Rules == nil {
				r.Rules = []*unified.Rule{}
			}
			slices.SortStableFunc(r.Rules, func(a, b *unified.Rule) int { return a.Order - b.Order })
			for _, child := range r.Rules {
				visit(child, false)
			}
			return
		}

		r.Kind = unified.KindRule
		if r.Category == "" {
			r.Category = InferCategory(r.Field)
		} else if !r.Category.Valid() {
			r.Category = ParseCategory(string(r.Category))
		}
		if r.Weight == nil {
			w := DefaultWeight(r.Category)
			r.Weight = &w
		} else if *r.Weight < 0 || *r.Weight > 100 {
			w := min(max(*r.Weight, 0), 100)
			r.Weight = &w
		}
		if r.IsHardRule == nil {
			h := InferHard(r.Category)
			r.IsHardRule = &h
		}
		r.Operator = operator(r.Operator)
		if r.PassScore != nil && r.Category != unified.Keyword {
			r.PassScore = nil
		}
		r.Rules = nil
	}
	visit(out, true)

	return out
}

// Logical marks node types, assigns missing or duplicate ids, uppercases
// combinators and canonicalizes condition operators. A nil or non-group root is
// wrapped into an empty root group.
func (n Normalizer) Logical(tree *rules.Node) *rules.Node {
	if tree == nil {
		return rules.NewRoot()
	}

	out := tree.Clone()
	if !out.IsGroup() {
		root := rules.NewRoot()
		root.Children = []*rules.Node{out}
		out = root
	}
	if strings.TrimSpace(out.ID) == "" {
		out.ID = rules.RootID
	}

	seen := make(map[string]struct{})
	var visit func(node *rules.Node, root bool)
	visit = func(node *rules.Node, root bool) {
		node.ID = n.uniqueID(node.ID, seen)
		if root || node.IsGroup() {
			node.Kind = rules.KindGroup
			node.Operator = combinator(node.Operator)
			node.Field = ""
			node.Value = ""
			for _, child := range node.Children {
				visit(child, false)
			}
			return
		}
		node.Kind = rules.KindCondition
		node.Operator = operator(node.Operator)
		node.Children = nil
	}
	visit(out, true)

	return out
}

// Simple assigns missing ids, trims and de-duplicates keywords, drops rules of
// unknown categories, clears passScore on non-keyword rules and orders the list.
func (n Normalizer) Simple(cfg simple.Config) simple.Config {
	out := simple.Config{AutoMode: cfg.AutoMode, Rules: make([]simple.Rule, 0, len(cfg.Rules))}
	seen := make(map[string]struct{})

	for _, r := range cfg.Clone().Rules {
		if _, ok := ToUnifiedCategory(r.Category); !ok {
			continue
		}
		r.ID = n.uniqueID(r.ID, seen)
		r.Keywords = CleanKeywords(r.Keywords)
		if r.Category != simple.CoreKeyword {
			r.PassScore = nil
		}
		out.Rules = append(out.Rules, r)
	}

	slices.SortStableFunc(out.Rules, func(a, b simple.Rule) int { return a.Order - b.Order })
	return out
}

// CleanKeywords trims keywords and removes empty and case-insensitive duplicates,
// keeping the first spelling.
func CleanKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		key := strings.ToLower(kw)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, kw)
	}
	return out
}

func (n Normalizer) uniqueID(id string, seen map[string]struct{}) string {
	id = strings.TrimSpace(id)
	for {
		if id != "" {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				return id
			}
		}
		id = n.id()
	}
}

func combinator(op string) string {
	op = strings.ToUpper(strings.TrimSpace(op))
	if !rules.IsCombinator(op) {
		return rules.And
	}
	return op
}

func operator(op string) string {
	op = rules.CanonicalOperator(op)
	if op == "" {
		return rules.OpContains
	}
	return op
}
