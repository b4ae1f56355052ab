// Package simple defines the typed keyword rule format used by the quick
// configuration screen: one keyword list per category with a must-match flag.
package simple

import (
	"encoding/json"
	"fmt"
)

// Category is the kind of a simple rule.
type Category string

const (
	Position    Category = "Position"
	Company     Category = "Company"
	CoreKeyword Category = "CoreKeyword"
	School      Category = "School"
	Education   Category = "Education"
)

// Categories lists every simple category in display order.
var Categories = []Category{Position, Company, CoreKeyword, School, Education}

// Rule is one keyword rule. PassScore is only meaningful for CoreKeyword rules.
type Rule struct {
	ID        string   `json:"id"`
	Category  Category `json:"category"`
	Keywords  []string `json:"keywords"`
	MustMatch bool     `json:"mustMatch"`
	Enabled   bool     `json:"enabled"`
	Order     int      `json:"order"`
	PassScore *int     `json:"passScore,omitempty"`
}

// Config is the complete simple rule set.
type Config struct {
	Rules    []Rule `json:"rules"`
	AutoMode bool   `json:"autoMode"`
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	out := Config{AutoMode: c.AutoMode, Rules: make([]Rule, len(c.Rules))}
	for i, r := range c.Rules {
		r.Keywords = append([]string(nil), r.Keywords...)
		if r.PassScore != nil {
			p := *r.PassScore
			r.PassScore = &p
		}
		out.Rules[i] = r
	}
	return out
}

// Find returns the first rule of the category, or nil.
func (c *Config) Find(category Category) *Rule {
	for i := range c.Rules {
		if c.Rules[i].Category == category {
			return &c.Rules[i]
		}
	}
	return nil
}

// Parse decodes a simple rule set.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode simple rules: %w", err)
	}
	return cfg, nil
}

// Default is the rule set used when nothing was saved yet: every category present,
// disabled, with no keywords.
func Default() Config {
	cfg := Config{Rules: make([]Rule, 0, len(Categories))}
	for i, category := range Categories {
		cfg.Rules = append(cfg.Rules, Rule{
			ID:        "simple-" + string(category),
			Category:  category,
			Keywords:  []string{},
			MustMatch: category == Position,
			Order:     i,
		})
	}
	return cfg
}
