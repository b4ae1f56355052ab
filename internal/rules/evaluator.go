package rules

import (
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/candidate-screener/internal/record"
)

// Result is the outcome of evaluating a rule tree against one record. The id
// lists name leaf conditions only.
type Result struct {
	Matched      bool     `json:"matched"`
	MatchedIDs   []string `json:"matchedIds"`
	UnmatchedIDs []string `json:"unmatchedIds"`
}

// Evaluator matches records against logical rule trees. It is safe for concurrent
// use.
type Evaluator struct {
	logger *zap.Logger
}

// NewEvaluator returns an evaluator that reports invalid operands to logger.
func NewEvaluator(logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{logger: logger}
}

// Evaluate runs a silent evaluator.
func Evaluate(rec record.Record, group *Node) Result {
	return NewEvaluator(nil).Evaluate(rec, group)
}

// Evaluate matches the record against the group.
//
// A disabled group never matches whatever its children are. Disabled children
// contribute false and are skipped by the combinator; an enabled group with no
// enabled children matches.
func (e *Evaluator) Evaluate(rec record.Record, group *Node) Result {
	res := Result{MatchedIDs: []string{}, UnmatchedIDs: []string{}}
	if group == nil {
		return res
	}
	res.Matched = e.eval(rec, group, &res)
	return res
}

func (e *Evaluator) eval(rec record.Record, n *Node, res *Result) bool {
	if !n.IsGroup() {
		ok := n.Enabled && e.condition(rec, n)
		if ok {
			res.MatchedIDs = append(res.MatchedIDs, n.ID)
		} else {
			res.UnmatchedIDs = append(res.UnmatchedIDs, n.ID)
		}
		return ok
	}

	if !n.Enabled {
		for _, leaf := range Leaves(n) {
			res.UnmatchedIDs = append(res.UnmatchedIDs, leaf.ID)
		}
		return false
	}

	or := strings.EqualFold(n.Operator, Or)
	enabled := 0
	anyOK, allOK := false, true

	for _, child := range n.Children {
		ok := e.eval(rec, child, res)
		if !child.Enabled {
			continue
		}
		enabled++
		anyOK = anyOK || ok
		allOK = allOK && ok
	}

	if enabled == 0 {
		return true
	}
	if or {
		return anyOK
	}
	return allOK
}

func (e *Evaluator) condition(rec record.Record, n *Node) bool {
	ok, err := Match(n.Operator, record.Lookup(rec, n.Field), n.Value)
	if err != nil {
		e.logger.Debug("condition evaluated to false",
			zap.String("rule_id", n.ID),
			zap.String("field", n.Field),
			zap.String("operator", n.Operator),
			zap.Error(err),
		)
		return false
	}
	return ok
}
