package ai

import (
	"github.com/spigell/candidate-screener/internal/adapter"
	"github.com/spigell/candidate-screener/internal/simple"
)

// Apply merges a suggestion into a copy of cfg. Suggested keywords are appended
// to the matching category rule, which is enabled; flags are only overwritten
// when the suggestion sets them. Companies feed the Company rule and keywords
// the CoreKeyword rule. Suggestions for unknown categories are ignored.
func Apply(cfg simple.Config, s *Suggestion) simple.Config {
	out := cfg.Clone()
	if s == nil {
		return adapter.Normalize.Simple(out)
	}

	for _, sr := range s.Rules {
		category, ok := adapter.ToSimpleCategory(adapter.ParseCategory(sr.Category))
		if !ok {
			continue
		}
		rule := ensure(&out, category)
		merge(rule, sr.Keywords)
		if sr.MustMatch != nil {
			rule.MustMatch = *sr.MustMatch
		}
		if sr.PassScore != nil && category == simple.CoreKeyword {
			p := *sr.PassScore
			rule.PassScore = &p
		}
	}

	if len(s.Companies) > 0 {
		merge(ensure(&out, simple.Company), s.Companies)
	}
	if len(s.Keywords) > 0 {
		merge(ensure(&out, simple.CoreKeyword), s.Keywords)
	}

	return adapter.Normalize.Simple(out)
}

func ensure(cfg *simple.Config, category simple.Category) *simple.Rule {
	if rule := cfg.Find(category); rule != nil {
		return rule
	}
	cfg.Rules = append(cfg.Rules, simple.Rule{
		ID:       "simple-" + string(category),
		Category: category,
		Keywords: []string{},
		Order:    len(cfg.Rules),
	})
	return &cfg.Rules[len(cfg.Rules)-1]
}

func merge(rule *simple.Rule, keywords []string) {
	cleaned := adapter.CleanKeywords(keywords)
	if len(cleaned) == 0 {
		return
	}
	rule.Keywords = adapter.CleanKeywords(append(rule.Keywords, cleaned...))
	rule.Enabled = true
}
