package adapter

import (
	"encoding/json"
	"fmt"
	"slices"
	"testing"

	"github.com/spigell/candidate-screener/internal/rules"
	"github.com/spigell/candidate-screener/internal/simple"
	"github.com/spigell/candidate-screener/internal/unified"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
}

func logicalSample() *rules.Node {
	return &rules.Node{ID: rules.RootID, Kind: rules.KindGroup, Operator: rules.And, Enabled: true, Children: []*rules.Node{
		{ID: "a", Kind: rules.KindCondition, Field: "jobTitle", Operator: rules.OpContains, Value: "frontend", Enabled: true},
		{ID: "g", Kind: rules.KindGroup, Operator: rules.Or, Enabled: true, Children: []*rules.Node{
			{ID: "b", Kind: rules.KindCondition, Field: "skills", Operator: rules.OpEquals, Value: "react", Enabled: true},
			{ID: "c", Kind: rules.KindCondition, Field: "city", Operator: rules.OpNotExists, Enabled: false},
		}},
	}}
}

type triple struct{ field, op, value string }

func triples(tree *rules.Node) []triple {
	var out []triple
	for _, leaf := range rules.Leaves(tree) {
		out = append(out, triple{leaf.Field, leaf.Operator, leaf.Value})
	}
	return out
}

func shape(n *rules.Node) string {
	if !n.IsGroup() {
		return "c"
	}
	s := n.Operator + "("
	for _, child := range n.Children {
		s += shape(child)
	}
	return s + ")"
}

func TestInferCategory(t *testing.T) {
	cases := map[string]unified.Category{
		"position":        unified.Position,
		"jobTitle":        unified.Position,
		"currentEmployer": unified.Company,
		"company":         unified.Company,
		"skills":          unified.Keyword,
		"technology":      unified.Keyword,
		"university":      unified.School,
		"schools":         unified.School,
		"degree":          unified.Education,
		"education":       unified.Education,
		"city":            unified.Generic,
	}
	for field, want := range cases {
		if got := InferCategory(field); got != want {
			t.Fatalf("InferCategory(%q) = %s, want %s", field, got, want)
		}
	}
}

func TestDefaults(t *testing.T) {
	weights := map[unified.Category]int{
		unified.Position: 100, unified.Company: 80, unified.Keyword: 70,
		unified.School: 60, unified.Education: 50, unified.Generic: 40,
		unified.Category("Salary"): 40,
	}
	for c, want := range weights {
		if got := DefaultWeight(c); got != want {
			t.Fatalf("DefaultWeight(%s) = %d, want %d", c, got, want)
		}
	}
	if !InferHard(unified.Position) || InferHard(unified.Company) {
		t.Fatalf("only Position rules are hard by default")
	}
	if ParseCategory("corekeyword") != unified.Keyword || ParseCategory("salary") != unified.Generic || ParseCategory("SCHOOL") != unified.School {
		t.Fatalf("unexpected ParseCategory results")
	}
}

func TestLogicalToUnified(t *testing.T) {
	u := LogicalToUnified(logicalSample())

	if !u.IsGroup() || u.Operator != rules.And || len(u.Rules) != 2 {
		t.Fatalf("unexpected root: %+v", u)
	}
	first := u.Rules[0]
	if first.Category != unified.Position || first.WeightOr(0) != DefaultLogicalWeight {
		t.Fatalf("unexpected first rule: %+v", first)
	}
	if first.IsHardRule != nil {
		t.Fatalf("hard flag is left for normalization")
	}
	if u.Rules[1].Operator != rules.Or || u.Rules[1].Rules[0].Category != unified.Keyword {
		t.Fatalf("unexpected nested group: %+v", u.Rules[1])
	}
}

func TestLogicalRoundTrip(t *testing.T) {
	original := logicalSample()
	back := UnifiedToLogical(LogicalToUnified(original))

	if !slices.Equal(triples(original), triples(back)) {
		t.Fatalf("leaf triples differ: %v vs %v", triples(original), triples(back))
	}
	if shape(original) != shape(back) {
		t.Fatalf("tree shape differs: %s vs %s", shape(original), shape(back))
	}
	if rules.FindByID(back, "c").Enabled {
		t.Fatalf("enabled flags must survive the round trip")
	}
}

func TestUnifiedToLogicalExpandsLists(t *testing.T) {
	root := &unified.Rule{ID: "root", Kind: unified.KindGroup, Operator: "AND", Enabled: true, Rules: []*unified.Rule{
		{ID: "kw", Kind: unified.KindRule, Field: "skills", Operator: rules.OpContains, Value: unified.List("go", "rust"), Enabled: true},
		{ID: "co", Kind: unified.KindRule, Field: "company", Operator: rules.OpNotContains, Value: unified.List("acme", "globex"), Enabled: true},
	}}

	tree := UnifiedToLogical(root)
	kw := rules.FindByID(tree, "kw")
	if kw == nil || !kw.IsGroup() || kw.Operator != rules.Or || len(kw.Children) != 2 {
		t.Fatalf("expected positive list to become an OR group, got %+v", kw)
	}
	co := rules.FindByID(tree, "co")
	if co == nil || co.Operator != rules.And {
		t.Fatalf("expected negative list to become an AND group, got %+v", co)
	}
	if err := rules.Validate(tree); err != nil {
		t.Fatalf("expanded tree must be valid: %v", err)
	}
}

func TestSimpleToUnified(t *testing.T) {
	pass := 80
	cfg := simple.Config{Rules: []simple.Rule{
		{ID: "p", Category: simple.Position, Keywords: []string{"前端"}, MustMatch: true, Enabled: true, Order: 0},
		{ID: "k", Category: simple.CoreKeyword, Keywords: []string{"React", "Vue"}, Enabled: true, Order: 1, PassScore: &pass},
		{ID: "x", Category: simple.Category("Salary"), Keywords: []string{"high"}, Enabled: true, Order: 2},
	}}

	u := SimpleToUnified(cfg)
	if len(u.Rules) != 2 {
		t.Fatalf("expected unknown category to be skipped, got %d rules", len(u.Rules))
	}

	p := u.Rules[0]
	if p.Category != unified.Position || p.Field != "position" || p.Operator != rules.OpContains || !p.Hard() {
		t.Fatalf("unexpected position rule: %+v", p)
	}
	if !p.Value.List || !slices.Equal(p.Value.Items, []string{"前端"}) {
		t.Fatalf("keywords must become a value list: %+v", p.Value)
	}

	k := u.Rules[1]
	if k.Category != unified.Keyword || k.Field != "skills" || k.Hard() || k.PassScore == nil || *k.PassScore != 80 {
		t.Fatalf("unexpected keyword rule: %+v", k)
	}
	if k.WeightOr(0) != 70 {
		t.Fatalf("expected keyword default weight, got %d", k.WeightOr(0))
	}
}

func TestUnifiedToSimple(t *testing.T) {
	hard := true
	root := &unified.Rule{ID: "root", Kind: unified.KindGroup, Operator: "AND", Enabled: true, Rules: []*unified.Rule{
		{ID: "p", Kind: unified.KindRule, Category: unified.Position, Field: "position", Operator: rules.OpEquals, Value: unified.Single("Go Developer"), IsHardRule: &hard, Enabled: true},
		{ID: "g", Kind: unified.KindRule, Category: unified.Generic, Field: "city", Operator: rules.OpEquals, Value: unified.Single("Berlin"), Enabled: true},
		{ID: "sub", Kind: unified.KindGroup, Operator: "OR", Enabled: true, Rules: []*unified.Rule{
			{ID: "k", Kind: unified.KindRule, Field: "skills", Operator: rules.OpContains, Value: unified.List("go", "sql"), Enabled: true},
		}},
	}}

	cfg := UnifiedToSimple(root)
	if len(cfg.Rules) != 2 {
		t.Fatalf("expected generic rule to be dropped, got %+v", cfg.Rules)
	}
	if cfg.Rules[0].Category != simple.Position || !cfg.Rules[0].MustMatch || !slices.Equal(cfg.Rules[0].Keywords, []string{"Go Developer"}) {
		t.Fatalf("unexpected position rule: %+v", cfg.Rules[0])
	}
	if cfg.Rules[1].Category != simple.CoreKeyword || cfg.Rules[1].Order != 1 {
		t.Fatalf("unexpected keyword rule: %+v", cfg.Rules[1])
	}
}

func TestSimpleRoundTrip(t *testing.T) {
	cfg := Normalize.Simple(simple.Config{Rules: []simple.Rule{
		{ID: "p", Category: simple.Position, Keywords: []string{"backend"}, MustMatch: true, Enabled: true, Order: 0},
		{ID: "c", Category: simple.Company, Keywords: []string{"Acme"}, Enabled: true, Order: 1},
		{ID: "k", Category: simple.CoreKeyword, Keywords: []string{"Go"}, Enabled: false, Order: 2},
	}})

	back := UnifiedToSimple(SimpleToUnified(cfg))
	a, _ := json.Marshal(cfg.Rules)
	b, _ := json.Marshal(back.Rules)
	if string(a) != string(b) {
		t.Fatalf("simple rules changed on round trip:\n%s\n%s", a, b)
	}
}

func TestNormalizeUnified(t *testing.T) {
	w := 150
	raw := &unified.Rule{Operator: "or", Enabled: true, Rules: []*unified.Rule{
		{Field: "skills", Operator: "contains", Value: unified.List("go"), Enabled: true, Order: 2},
		{Field: "position", Operator: "EQUALS", Value: unified.Single("dev"), Enabled: true, Order: 1},
		{Category: "Salary", Field: "salary", Operator: ">=", Value: unified.Single("10"), Weight: &w, Enabled: true, Order: 3},
		{ID: "dup", Category: "company", Field: "company", Enabled: true, Order: 4},
		{ID: "dup", Category: unified.School, Field: "schools", Enabled: true, Order: 5},
	}}

	norm := Normalizer{NewID: sequentialIDs()}.Unified(raw)

	if norm.ID != rules.RootID || norm.Kind != unified.KindGroup || norm.Operator != "OR" {
		t.Fatalf("unexpected root: %+v", norm)
	}
	pos := norm.Rules[0]
	if pos.Category != unified.Position || !pos.Hard() || pos.WeightOr(0) != 100 || pos.Operator != rules.OpEquals {
		t.Fatalf("unexpected position rule: %+v", pos)
	}
	kw := norm.Rules[1]
	if kw.Category != unified.Keyword || kw.Hard() || kw.WeightOr(0) != 70 || kw.ID == "" {
		t.Fatalf("unexpected keyword rule: %+v", kw)
	}
	salary := norm.Rules[2]
	if salary.Category != unified.Generic || salary.WeightOr(0) != 100 || salary.Operator != rules.OpGreaterOrEqual {
		t.Fatalf("unexpected generic rule: %+v", salary)
	}
	company := norm.Rules[3]
	if company.Category != unified.Company || company.Operator != rules.OpContains {
		t.Fatalf("unexpected company rule: %+v", company)
	}
	if norm.Rules[3].ID == norm.Rules[4].ID {
		t.Fatalf("duplicate ids must be replaced")
	}
	if raw.ID != "" || raw.Rules[0].Category != "" {
		t.Fatalf("input must not be modified")
	}
}

func TestNormalizationIsIdempotent(t *testing.T) {
	normalizer := Normalizer{NewID: sequentialIDs()}

	unifiedInputs := []*unified.Rule{
		nil,
		{Operator: "and"},
		{Field: "skills", Operator: "contains", Value: unified.List("go")},
		LogicalToUnified(logicalSample()),
		SimpleToUnified(simple.Default()),
	}
	for i, in := range unifiedInputs {
		once := normalizer.Unified(in)
		twice := normalizer.Unified(once)
		a, _ := json.Marshal(once)
		b, _ := json.Marshal(twice)
		if string(a) != string(b) {
			t.Fatalf("unified input %d is not idempotent:\n%s\n%s", i, a, b)
		}
	}

	logicalInputs := []*rules.Node{
		nil,
		logicalSample(),
		{Field: "skills", Operator: "notContains", Value: "php"},
		{Operator: "or", Children: []*rules.Node{{Field: "a", Operator: "eq", Value: "1"}, {Field: "a", Operator: "eq", Value: "1"}}},
	}
	for i, in := range logicalInputs {
		once := normalizer.Logical(in)
		twice := normalizer.Logical(once)
		a, _ := rules.Serialize(once)
		b, _ := rules.Serialize(twice)
		if string(a) != string(b) {
			t.Fatalf("logical input %d is not idempotent:\n%s\n%s", i, a, b)
		}
		if err := rules.Validate(once); err != nil {
			t.Fatalf("normalized logical input %d is invalid: %v", i, err)
		}
	}

	simpleInputs := []simple.Config{
		{},
		simple.Default(),
		{Rules: []simple.Rule{{Category: simple.CoreKeyword, Keywords: []string{" Go ", "go", "", "SQL"}, Order: 3}, {Category: simple.Position, Order: 1}}},
	}
	for i, in := range simpleInputs {
		once := normalizer.Simple(in)
		twice := normalizer.Simple(once)
		a, _ := json.Marshal(once)
		b, _ := json.Marshal(twice)
		if string(a) != string(b) {
			t.Fatalf("simple input %d is not idempotent:\n%s\n%s", i, a, b)
		}
	}
}

func TestNormalizeSimple(t *testing.T) {
	pass := 50
	cfg := Normalizer{NewID: sequentialIDs()}.Simple(simple.Config{Rules: []simple.Rule{
		{Category: simple.CoreKeyword, Keywords: []string{" Go ", "go", "", "SQL"}, Order: 3},
		{Category: simple.Position, Order: 1, PassScore: &pass},
		{Category: simple.Category("Salary"), Order: 0},
	}})

	if len(cfg.Rules) != 2 {
		t.Fatalf("expected unknown category to be dropped, got %+v", cfg.Rules)
	}
	if cfg.Rules[0].Category != simple.Position || cfg.Rules[0].PassScore != nil {
		t.Fatalf("expected position first without passScore: %+v", cfg.Rules[0])
	}
	if !slices.Equal(cfg.Rules[1].Keywords, []string{"Go", "SQL"}) {
		t.Fatalf("unexpected keywords: %v", cfg.Rules[1].Keywords)
	}
	if cfg.Rules[0].ID == "" || cfg.Rules[1].ID == "" {
		t.Fatalf("ids must be assigned")
	}
}

func TestFlatten(t *testing.T) {
	root := Normalize.Unified(&unified.Rule{Operator: "AND", Enabled: true, Rules: []*unified.Rule{
		{ID: "a", Field: "position", Enabled: true, Order: 1},
		{ID: "off", Field: "skills", Enabled: false, Order: 2},
		{ID: "g", Operator: "OR", Enabled: false, Order: 3, Rules: []*unified.Rule{{ID: "hidden", Field: "company", Enabled: true}}},
		{ID: "first", Field: "schools", Enabled: true, Order: 0},
	}})

	var ids []string
	for _, r := range Flatten(root) {
		ids = append(ids, r.ID)
	}
	if !slices.Equal(ids, []string{"first", "a"}) {
		t.Fatalf("unexpected flattened rules: %v", ids)
	}
}
