// Package scoring decides whether a candidate is contacted automatically, skipped
// or deferred to a human, and explains the score behind the decision.
package scoring

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/candidate-screener/internal/adapter"
	"github.com/spigell/candidate-screener/internal/record"
	"github.com/spigell/candidate-screener/internal/rules"
	"github.com/spigell/candidate-screener/internal/simple"
	"github.com/spigell/candidate-screener/internal/unified"
)

// Engine scores candidates. It holds no mutable state and is safe for concurrent
// use.
type Engine struct {
	cfg        Config
	similarity Similarity
	logger     *zap.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger reports invalid rule operands to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSimilarity overrides the configured fuzzy matcher.
func WithSimilarity(s Similarity) Option {
	return func(e *Engine) {
		if s != nil {
			e.similarity = s
		}
	}
}

// New validates cfg and builds an engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	similarity, err := SimilarityByName(cfg.Similarity)
	if err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg, similarity: similarity, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Ruleset is a normalized unified rule set flattened into evaluation order.
type Ruleset struct {
	Root  *unified.Rule
	Rules []*unified.Rule
	Mode  Mode
}

// Compile normalizes root and flattens it. The engine's mode applies.
func (e *Engine) Compile(root *unified.Rule) *Ruleset {
	norm := adapter.Normalize.Unified(root)
	return &Ruleset{Root: norm, Rules: adapter.Flatten(norm), Mode: e.cfg.Mode}
}

// CompileSimple converts a simple config. Its autoMode flag selects the mode.
func (e *Engine) CompileSimple(cfg simple.Config) *Ruleset {
	set := e.Compile(adapter.SimpleToUnified(adapter.Normalize.Simple(cfg)))
	set.Mode = ModeManual
	if cfg.AutoMode {
		set.Mode = ModeAuto
	}
	return set
}

// CompileLogical converts a logical tree. Groups are flattened: every enabled
// leaf is scored on its own, so a hard leaf under an OR group still gates.
func (e *Engine) CompileLogical(tree *rules.Node) *Ruleset {
	norm := adapter.Normalize.Logical(tree)
	rules.Walk(norm, func(n *rules.Node) bool {
		if n.IsGroup() && n.Enabled && n.Operator == rules.Or && len(n.Children) > 1 {
			e.logger.Warn("OR group is flattened, its conditions are scored individually",
				zap.String("group_id", n.ID),
				zap.Int("conditions", len(rules.Leaves(n))),
			)
		}
		return true
	})
	return e.Compile(adapter.LogicalToUnified(norm))
}

// Score compiles root and evaluates the record against it.
func (e *Engine) Score(rec record.Record, root *unified.Rule) Result {
	return e.Evaluate(rec, e.Compile(root))
}

// ScoreSimple compiles a simple config and evaluates the record against it.
func (e *Engine) ScoreSimple(rec record.Record, cfg simple.Config) Result {
	return e.Evaluate(rec, e.CompileSimple(cfg))
}

// ScoreAll evaluates every record concurrently. Results keep the input order.
func (e *Engine) ScoreAll(ctx context.Context, records []record.Record, set *Ruleset) ([]Result, error) {
	results := make([]Result, len(records))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, rec := range records {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = e.Evaluate(rec, set)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("score candidates: %w", err)
	}
	return results, nil
}

// evaluation carries the per-candidate state of one Evaluate call.
type evaluation struct {
	rec    record.Record
	result Result

	keywordRule  *unified.Rule
	keywordScore int
	keywordDone  bool
	keywordNote  string
}

// Evaluate runs the decision algorithm for one record:
//
//  1. hard rules, in order; the first failure rejects with score 0;
//  2. company classification of soft company rules;
//  3. keyword scoring of the first keyword rule;
//  4. school and education rules, for explanation only;
//  5. aggregation by the configured policy;
//  6. action by pass/fail and mode.
func (e *Engine) Evaluate(rec record.Record, set *Ruleset) Result {
	ev := &evaluation{
		rec: rec,
		result: Result{
			CandidateID:   rec.ID(),
			Policy:        e.cfg.Policy,
			PerRuleDetail: []Detail{},
		},
	}
	if set == nil {
		set = &Ruleset{Mode: e.cfg.Mode}
	}

	for _, r := range set.Rules {
		if ratioScored(r) && len(r.Value.Items) > 0 {
			ev.keywordRule = r
			break
		}
	}

	hardPassed := 0
	for _, r := range set.Rules {
		if !r.Hard() {
			continue
		}
		detail := e.evaluateRule(ev, r)
		detail.Hard = true
		ev.result.PerRuleDetail = append(ev.result.PerRuleDetail, detail)
		if !detail.Matched {
			ev.result.Score = 0
			ev.result.Passed = false
			ev.result.Action = ActionSkip
			ev.result.HardRejected = true
			ev.result.RejectReason = rejectReason(r.Category, r.ID)
			ev.result.RejectCategory = r.Category
			return ev.result
		}
		hardPassed++
	}

	if ev.keywordRule != nil {
		ev.result.KeywordScore = e.keywordScore(ev)
		ev.result.KeywordPassed = ev.result.KeywordScore >= e.passScore(ev.keywordRule)
	}

	var weighted, totalWeight float64
	for _, r := range set.Rules {
		if r.Hard() {
			continue
		}
		detail := e.evaluateRule(ev, r)
		ev.result.PerRuleDetail = append(ev.result.PerRuleDetail, detail)
		if detail.Counted {
			weighted += float64(detail.Score * detail.Weight)
			totalWeight += float64(detail.Weight)
		}
	}

	switch e.cfg.Policy {
	case PolicyStagedKeyword:
		if ev.keywordRule == nil {
			ev.result.RejectReason = ReasonNoKeyword
			break
		}
		ev.result.Score = ev.result.KeywordScore
		ev.result.Passed = ev.result.KeywordPassed
		if !ev.result.Passed {
			ev.result.RejectReason = fmt.Sprintf("keyword score %d below pass score %d", ev.result.KeywordScore, e.passScore(ev.keywordRule))
		}
	default:
		switch {
		case totalWeight > 0:
			ev.result.Score = clamp(int(math.Round(weighted / totalWeight)))
		case hardPassed > 0:
			ev.result.Score = 100
		}
		ev.result.Passed = float64(ev.result.Score) >= e.cfg.AutoGreetThreshold
		if !ev.result.Passed {
			ev.result.RejectReason = fmt.Sprintf("score %d below threshold %.0f", ev.result.Score, e.cfg.AutoGreetThreshold)
		}
	}

	ev.result.Action = Decide(ev.result.Passed, set.Mode)
	return ev.result
}

func (e *Engine) evaluateRule(ev *evaluation, r *unified.Rule) Detail {
	detail := Detail{
		RuleID:   r.ID,
		Category: r.Category,
		Weight:   r.WeightOr(adapter.DefaultWeight(r.Category)),
		Counted:  !r.Hard(),
	}

	switch {
	case ratioScored(r):
		if len(r.Value.Items) == 0 {
			detail.Matched = true
			detail.Score = 100
			detail.Counted = false
			detail.Explanation = "no keywords configured"
			return detail
		}
		score, note := e.keywordRuleScore(ev, r)
		detail.Score = score
		detail.Matched = score >= e.passScore(r)
		detail.Explanation = note
	case r.Category == unified.Company:
		matched, hits := e.matchRule(ev.rec, r)
		detail.Matched = matched
		if r.Hard() || rules.IsNegative(r.Operator) {
			detail.Score = boolScore(matched)
			detail.Explanation = explainMatch(r, matched, hits)
			break
		}
		detail.Score, detail.Explanation = e.classifyCompany(ev, r, matched, hits)
	case r.Category == unified.School || r.Category == unified.Education:
		matched, hits := e.matchRule(ev.rec, r)
		detail.Matched = matched
		detail.Score = boolScore(matched)
		detail.Explanation = explainMatch(r, matched, hits)
		if !r.Hard() {
			detail.Counted = false
			detail.Explanation += " (informational)"
		}
	default:
		matched, hits := e.matchRule(ev.rec, r)
		detail.Matched = matched
		detail.Score = boolScore(matched)
		detail.Explanation = explainMatch(r, matched, hits)
	}

	return detail
}

// ratioScored reports whether r is a keyword rule scored by the share of its
// keywords found in the record. Keyword rules with any other operator are
// plain matches.
func ratioScored(r *unified.Rule) bool {
	if r.Category != unified.Keyword {
		return false
	}
	switch rules.CanonicalOperator(r.Operator) {
	case "", rules.OpContains, rules.OpEquals:
		return true
	default:
		return false
	}
}

// keywordScore returns the score of the keyword stage rule, computing it once.
func (e *Engine) keywordScore(ev *evaluation) int {
	if !ev.keywordDone {
		ev.keywordScore, ev.keywordNote = e.scoreKeywords(ev.rec, ev.keywordRule)
		ev.keywordDone = true
	}
	return ev.keywordScore
}

func (e *Engine) keywordRuleScore(ev *evaluation, r *unified.Rule) (int, string) {
	if r == ev.keywordRule {
		score := e.keywordScore(ev)
		return score, ev.keywordNote
	}
	return e.scoreKeywords(ev.rec, r)
}

// scoreKeywords computes round(matched/total*100). A keyword matches a skill when
// it is a case-insensitive substring of it or similar enough to it.
func (e *Engine) scoreKeywords(rec record.Record, r *unified.Rule) (int, string) {
	keywords := adapter.CleanKeywords(r.Value.Items)
	if len(keywords) == 0 {
		return 0, "no keywords configured"
	}

	field := r.Field
	if field == "" {
		field = record.FieldSkills
	}
	skills := record.Lookup(rec, field).Texts()

	var matched, missing []string
	for _, kw := range keywords {
		if e.keywordMatches(kw, skills) {
			matched = append(matched, kw)
		} else {
			missing = append(missing, kw)
		}
	}

	ratio := float64(len(matched)) / float64(len(keywords))
	score := clamp(int(math.Round(ratio * 100)))
	note := fmt.Sprintf("matched %d/%d keywords", len(matched), len(keywords))
	if len(matched) > 0 {
		note += ": " + strings.Join(matched, ", ")
	}
	if len(missing) > 0 {
		note += "; missing: " + strings.Join(missing, ", ")
	}
	return score, note
}

func (e *Engine) keywordMatches(keyword string, skills []string) bool {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	for _, skill := range skills {
		s := strings.ToLower(strings.TrimSpace(skill))
		if s == "" {
			continue
		}
		if strings.Contains(s, kw) {
			return true
		}
		if e.similarity.Similarity(kw, s) >= e.cfg.SimilarityThreshold {
			return true
		}
	}
	return false
}

func (e *Engine) passScore(r *unified.Rule) int {
	if r != nil && r.PassScore != nil && *r.PassScore > 0 {
		return *r.PassScore
	}
	return e.cfg.PassScore
}

// matchRule applies the rule's operator to each of its values. Positive operators
// need one matching value, negative operators need every value to hold.
func (e *Engine) matchRule(rec record.Record, r *unified.Rule) (bool, []string) {
	actual := record.Lookup(rec, r.Field)
	values := r.Value.Items
	if len(values) == 0 {
		values = []string{""}
	}

	negative := rules.IsNegative(r.Operator)
	var hits []string
	for _, value := range values {
		ok, err := rules.Match(r.Operator, actual, value)
		if err != nil {
			e.logger.Debug("rule evaluated to false",
				zap.String("rule_id", r.ID),
				zap.String("field", r.Field),
				zap.String("operator", r.Operator),
				zap.Error(err),
			)
		}
		if negative {
			if !ok {
				return false, []string{value}
			}
			continue
		}
		if ok {
			hits = append(hits, value)
		}
	}

	if negative {
		return true, nil
	}
	return len(hits) > 0, hits
}

// classifyCompany scores a soft company rule: a listed (target) company keeps the
// full score, a competitor is scaled by the keyword gate and any other company
// by the normal multiplier.
func (e *Engine) classifyCompany(ev *evaluation, r *unified.Rule, matched bool, hits []string) (int, string) {
	competitor := e.competitor(ev.rec)
	if competitor != "" {
		ev.result.CompetitorCompany = true
	}

	switch {
	case competitor != "":
		multiplier := 1.0
		if e.cfg.Companies.KeywordGate {
			kwScore := 0
			if ev.keywordRule != nil {
				kwScore = e.keywordScore(ev)
			}
			multiplier = math.Min(1, float64(kwScore)/e.cfg.Companies.KeywordThreshold)
		}
		return clamp(int(math.Round(100 * multiplier))), fmt.Sprintf("competitor company %s, multiplier %.2f", competitor, multiplier)
	case matched:
		return 100, "target company: " + strings.Join(hits, ", ")
	default:
		m := e.cfg.Companies.NormalMultiplier
		return clamp(int(math.Round(100 * m))), fmt.Sprintf("unlisted company, multiplier %.2f", m)
	}
}

func (e *Engine) competitor(rec record.Record) string {
	companies := record.Lookup(rec, record.FieldCompany).Texts()
	for _, name := range e.cfg.Companies.Competitors {
		want := strings.ToLower(strings.TrimSpace(name))
		if want == "" {
			continue
		}
		for _, company := range companies {
			if strings.Contains(strings.ToLower(company), want) {
				return name
			}
		}
	}
	return ""
}

func explainMatch(r *unified.Rule, matched bool, hits []string) string {
	switch {
	case matched && len(hits) > 0:
		return fmt.Sprintf("%s %s %s", r.Field, r.Operator, strings.Join(hits, ", "))
	case matched:
		return fmt.Sprintf("%s %s satisfied", r.Field, r.Operator)
	default:
		return fmt.Sprintf("%s %s %s not satisfied", r.Field, r.Operator, strings.Join(r.Value.Items, ", "))
	}
}

func boolScore(ok bool) int {
	if ok {
		return 100
	}
	return 0
}

func clamp(score int) int {
	return min(max(score, 0), 100)
}
