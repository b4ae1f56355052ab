// Package adapter converts rule sets between the logical tree, unified weighted
// and simple keyword formats, and normalizes raw rule sets before evaluation.
package adapter

import (
	"strings"

	"github.com/spigell/candidate-screener/internal/simple"
	"github.com/spigell/candidate-screener/internal/unified"
)

// DefaultLogicalWeight is assigned to rules converted from the logical tree.
const DefaultLogicalWeight = 50

var vocabulary = []struct {
	category unified.Category
	terms    []string
}{
	{unified.Position, []string{"position", "title", "job"}},
	{unified.Company, []string{"company", "employer"}},
	{unified.Keyword, []string{"skill", "technology", "keyword"}},
	{unified.School, []string{"school", "university", "college"}},
	{unified.Education, []string{"education", "degree"}},
}

var defaultWeights = map[unified.Category]int{
	unified.Position:  100,
	unified.Company:   80,
	unified.Keyword:   70,
	unified.School:    60,
	unified.Education: 50,
	unified.Generic:   40,
}

var simpleToUnified = map[simple.Category]unified.Category{
	simple.Position:    unified.Position,
	simple.Company:     unified.Company,
	simple.CoreKeyword: unified.Keyword,
	simple.School:      unified.School,
	simple.Education:   unified.Education,
}

var unifiedToSimple = map[unified.Category]simple.Category{
	unified.Position:  simple.Position,
	unified.Company:   simple.Company,
	unified.Keyword:   simple.CoreKeyword,
	unified.School:    simple.School,
	unified.Education: simple.Education,
}

// Record fields that simple rules are matched against.
var simpleFields = map[simple.Category]string{
	simple.Position:    "position",
	simple.Company:     "company",
	simple.CoreKeyword: "skills",
	simple.School:      "schools",
	simple.Education:   "education",
}

// InferCategory guesses the category from a field name by substring match.
func InferCategory(field string) unified.Category {
	field = strings.ToLower(field)
	for _, entry := range vocabulary {
		for _, term := range entry.terms {
			if strings.Contains(field, term) {
				return entry.category
			}
		}
	}
	return unified.Generic
}

// ParseCategory resolves a category name case-insensitively. Simple category names
// are accepted too. Anything unknown is Generic.
func ParseCategory(name string) unified.Category {
	name = strings.TrimSpace(name)
	for _, c := range unified.Categories {
		if strings.EqualFold(name, string(c)) {
			return c
		}
	}
	for sc, c := range simpleToUnified {
		if strings.EqualFold(name, string(sc)) {
			return c
		}
	}
	return unified.Generic
}

// DefaultWeight is the weight a rule of the category gets when none is set.
func DefaultWeight(c unified.Category) int {
	if w, ok := defaultWeights[c]; ok {
		return w
	}
	return defaultWeights[unified.Generic]
}

// InferHard tells whether rules of the category are hard rules by default.
func InferHard(c unified.Category) bool {
	return c == unified.Position
}

// ToUnifiedCategory maps a simple category; ok is false for unknown ones.
func ToUnifiedCategory(c simple.Category) (unified.Category, bool) {
	u, ok := simpleToUnified[c]
	return u, ok
}

// ToSimpleCategory maps a unified category; ok is false when there is no simple
// equivalent (Generic).
func ToSimpleCategory(c unified.Category) (simple.Category, bool) {
	s, ok := unifiedToSimple[c]
	return s, ok
}

// FieldFor returns the record field a simple category is matched against.
func FieldFor(c simple.Category) string {
	return simpleFields[c]
}
