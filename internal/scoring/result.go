package scoring

import "github.com/spigell/candidate-screener/internal/unified"

// Action is the decision taken for a candidate.
type Action string

const (
	ActionGreet  Action = "greet"
	ActionSkip   Action = "skip"
	ActionManual Action = "manual"
)

// Reject reasons produced by the hard gate.
const (
	ReasonPosition  = "position mismatch"
	ReasonCompany   = "disqualified company"
	ReasonKeyword   = "keyword mismatch"
	ReasonSchool    = "school mismatch"
	ReasonEducation = "education mismatch"
	ReasonNoKeyword = "no keyword rule configured"
)

// Detail explains the outcome of one rule.
type Detail struct {
	RuleID      string           `json:"ruleId"`
	Category    unified.Category `json:"category"`
	Matched     bool             `json:"matched"`
	Score       int              `json:"score"`
	Weight      int              `json:"weight"`
	Hard        bool             `json:"hard,omitempty"`
	Counted     bool             `json:"counted"`
	Explanation string           `json:"explanation"`
}

// Result is the decision for one candidate.
type Result struct {
	CandidateID       string           `json:"candidateId,omitempty"`
	Score             int              `json:"score"`
	Passed            bool             `json:"passed"`
	Action            Action           `json:"action"`
	PerRuleDetail     []Detail         `json:"perRuleDetail"`
	RejectReason      string           `json:"rejectReason,omitempty"`
	RejectCategory    unified.Category `json:"rejectCategory,omitempty"`
	Policy            Policy           `json:"policy"`
	KeywordScore      int              `json:"keywordScore"`
	KeywordPassed     bool             `json:"keywordPassed"`
	CompetitorCompany bool             `json:"competitorCompany"`
	HardRejected      bool             `json:"hardRejected,omitempty"`
}

func rejectReason(category unified.Category, ruleID string) string {
	switch category {
	case unified.Position:
		return ReasonPosition
	case unified.Company:
		return ReasonCompany
	case unified.Keyword:
		return ReasonKeyword
	case unified.School:
		return ReasonSchool
	case unified.Education:
		return ReasonEducation
	default:
		return "rule " + ruleID + " failed"
	}
}

// Decide maps a pass/fail outcome and mode to an action.
func Decide(passed bool, mode Mode) Action {
	switch {
	case !passed:
		return ActionSkip
	case mode == ModeAuto:
		return ActionGreet
	default:
		return ActionManual
	}
}

// Decisions is an ordered list of results for a batch.
type Decisions []Result

// ReportByAction groups candidate ids by decided action, keeping batch order.
func (d Decisions) ReportByAction() map[Action][]string {
	report := make(map[Action][]string)
	for _, res := range d {
		report[res.Action] = append(report[res.Action], res.CandidateID)
	}
	return report
}

// Select returns the results with the given action.
func (d Decisions) Select(action Action) Decisions {
	var out Decisions
	for _, res := range d {
		if res.Action == action {
			out = append(out, res)
		}
	}
	return out
}
