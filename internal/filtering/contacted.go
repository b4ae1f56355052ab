package filtering

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/candidate-screener/internal/record"
)

const forceFlagSetMsg = "force flag is set"

type contactedFilter struct {
	ignore bool
}

// NewContacted creates a filter that removes candidates found in the contacted history.
func NewContacted() Filter {
	return &contactedFilter{}
}

func (f *contactedFilter) Name() string { return "contacted" }

func (f *contactedFilter) Disable(string) {}

func (f *contactedFilter) IsEnabled() bool { return true }

func (f *contactedFilter) Validate(cfg *Config) error {
	f.ignore = cfg != nil && cfg.IgnoreContacted
	return nil
}

func (f *contactedFilter) Apply(_ context.Context, deps Deps, r *record.Records) (*record.Records, Step, error) {
	initial := r.Len()
	if f.ignore {
		deps.Logger.Info("ignoring already contacted candidates", zap.String("reason", forceFlagSetMsg))
		return r, Step{Initial: initial, Left: r.Len()}, nil
	}
	if deps.Contacted == nil {
		return r, Step{Initial: initial, Left: r.Len()}, nil
	}

	excluded := r.Exclude(deps.Contacted.IDs())
	if len(excluded) > 0 {
		deps.Logger.Info("excluding already contacted candidates",
			zap.Strings("excluded_candidates", excluded),
			zap.Int("candidates_left", r.Len()),
		)
	}

	return r, Step{Initial: initial, Dropped: len(excluded), Left: r.Len()}, nil
}

func (f *contactedFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: true,
		Details: map[string]string{"exclude_contacted": strconv.FormatBool(!f.ignore)},
	}
}
