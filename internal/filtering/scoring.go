package filtering

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/candidate-screener/internal/logger"
	"github.com/spigell/candidate-screener/internal/record"
	"github.com/spigell/candidate-screener/internal/scoring"
)

type scoringFilter struct {
	enabled     bool
	reason      string
	keepSkipped bool
	decisions   scoring.Decisions
}

// NewScoring creates the step that scores every candidate and drops the ones
// decided as skip.
func NewScoring() Filter {
	return &scoringFilter{enabled: true}
}

func (f *scoringFilter) Name() string { return "scoring" }

func (f *scoringFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *scoringFilter) IsEnabled() bool { return f.enabled }

func (f *scoringFilter) Validate(cfg *Config) error {
	f.keepSkipped = cfg != nil && cfg.KeepSkipped
	return nil
}

func (f *scoringFilter) Apply(ctx context.Context, deps Deps, r *record.Records) (*record.Records, Step, error) {
	if deps.Engine == nil || deps.Ruleset == nil {
		return r, Step{}, errors.New("scoring engine and rule set are required")
	}

	initial := r.Len()
	results, err := deps.Engine.ScoreAll(ctx, r.Items, deps.Ruleset)
	if err != nil {
		return r, Step{}, err
	}

	f.decisions = make(scoring.Decisions, 0, len(results))
	kept := r.Items[:0]
	for i, res := range results {
		deps.Metrics.Observe(res)
		f.decisions = append(f.decisions, res)

		log := logger.ForCandidate(deps.Logger, res.CandidateID, strings.Join(r.Items[i].Texts(record.FieldName), " "))
		if res.Action == scoring.ActionSkip {
			log.Info("candidate rejected", zap.Int("score", res.Score), zap.String("reason", res.RejectReason))
			if !f.keepSkipped {
				continue
			}
		} else {
			log.Info("candidate accepted", zap.Int("score", res.Score), zap.String("action", string(res.Action)))
		}
		kept = append(kept, r.Items[i])
	}
	clear(r.Items[len(kept):])
	r.Items = kept

	left := r.Len()
	return r, Step{Initial: initial, Dropped: initial - left, Left: left}, nil
}

func (f *scoringFilter) Decisions() scoring.Decisions {
	return f.decisions
}

func (f *scoringFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.enabled,
		Reason:  f.reason,
		Details: map[string]string{"keep_skipped": strconv.FormatBool(f.keepSkipped)},
	}
}
