// Package unified defines the weighted rule format: leaf rules carrying a
// category, a weight and a hard-rule flag, nested in AND/OR groups.
package unified

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Category is the semantic kind of a rule.
type Category string

const (
	Position  Category = "Position"
	Company   Category = "Company"
	Keyword   Category = "Keyword"
	School    Category = "School"
	Education Category = "Education"
	Generic   Category = "Generic"
)

// Categories lists every known category.
var Categories = []Category{Position, Company, Keyword, School, Education, Generic}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Kind tells leaf rules and groups apart on the wire.
type Kind string

const (
	KindRule  Kind = "rule"
	KindGroup Kind = "group"
)

// Rule is either a leaf rule or a group. Groups use Operator as their AND/OR
// combinator and carry nested entries in Rules.
//
// Weight and IsHardRule are pointers so that normalization can tell "absent" from
// an explicit zero/false.
type Rule struct {
	ID         string   `json:"id"`
	Kind       Kind     `json:"type,omitempty"`
	Category   Category `json:"category,omitempty"`
	Field      string   `json:"field,omitempty"`
	Operator   string   `json:"operator"`
	Value      Value    `json:"value,omitzero"`
	Weight     *int     `json:"weight,omitempty"`
	Enabled    bool     `json:"enabled"`
	IsHardRule *bool    `json:"isHardRule,omitempty"`
	Order      int      `json:"order"`
	PassScore  *int     `json:"passScore,omitempty"`
	Rules      []*Rule  `json:"rules,omitempty"`
}

// IsGroup reports whether the entry is a group.
func (r *Rule) IsGroup() bool {
	if r == nil {
		return false
	}
	switch r.Kind {
	case KindGroup:
		return true
	case KindRule:
		return false
	}
	op := strings.ToUpper(strings.TrimSpace(r.Operator))
	return r.Field == "" && (op == "AND" || op == "OR")
}

// WeightOr returns the weight, or def when it was never set.
func (r *Rule) WeightOr(def int) int {
	if r == nil || r.Weight == nil {
		return def
	}
	return *r.Weight
}

// Hard reports whether the rule is a hard rule.
func (r *Rule) Hard() bool {
	return r != nil && r.IsHardRule != nil && *r.IsHardRule
}

// Clone returns a deep copy.
func (r *Rule) Clone() *Rule {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Value = r.Value.Clone()
	if r.Weight != nil {
		w := *r.Weight
		cp.Weight = &w
	}
	if r.IsHardRule != nil {
		h := *r.IsHardRule
		cp.IsHardRule = &h
	}
	if r.PassScore != nil {
		p := *r.PassScore
		cp.PassScore = &p
	}
	if r.Rules != nil {
		cp.Rules = make([]*Rule, len(r.Rules))
		for i, child := range r.Rules {
			cp.Rules[i] = child.Clone()
		}
	}
	return &cp
}

// Value is a rule operand: a single string or a list of strings.
type Value struct {
	Items []string
	List  bool
}

// Single builds a scalar value.
func Single(s string) Value { return Value{Items: []string{s}} }

// List builds a list value.
func List(items ...string) Value { return Value{Items: append([]string(nil), items...), List: true} }

// IsZero lets encoding/json omit unset values.
func (v Value) IsZero() bool { return len(v.Items) == 0 && !v.List }

// Clone returns a copy that shares no memory with v.
func (v Value) Clone() Value {
	return Value{Items: append([]string(nil), v.Items...), List: v.List}
}

// First returns the first item or an empty string.
func (v Value) First() string {
	if len(v.Items) == 0 {
		return ""
	}
	return v.Items[0]
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.List {
		items := v.Items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(v.First())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var items []any
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("decode rule value: %w", err)
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, stringify(item))
		}
		*v = Value{Items: out, List: true}
		return nil
	}
	var scalar any
	if err := json.Unmarshal(data, &scalar); err != nil {
		return fmt.Errorf("decode rule value: %w", err)
	}
	*v = Single(stringify(scalar))
	return nil
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}

// Walk visits the tree depth-first, groups before their entries.
func Walk(r *Rule, fn func(*Rule) bool) bool {
	if r == nil {
		return true
	}
	if !fn(r) {
		return false
	}
	for _, child := range r.Rules {
		if !Walk(child, fn) {
			return false
		}
	}
	return true
}

// Parse decodes a unified rule set.
func Parse(data []byte) (*Rule, error) {
	var root Rule
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode unified rules: %w", err)
	}
	if !root.IsGroup() {
		return nil, fmt.Errorf("unified rules: root must be a group")
	}
	return &root, nil
}
