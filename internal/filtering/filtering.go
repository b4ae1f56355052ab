package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/candidate-screener/internal/metrics"
	"github.com/spigell/candidate-screener/internal/record"
	"github.com/spigell/candidate-screener/internal/scoring"
)

// Filter represents a single step applied to a batch of candidates.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, r *record.Records) (*record.Records, Step, error)
}

// Deps aggregates dependencies shared across all steps.
type Deps struct {
	Logger    *zap.Logger
	Contacted *record.ContactedRecords
	Engine    *scoring.Engine
	Ruleset   *scoring.Ruleset
	Metrics   *metrics.Recorder
}

// Step describes the result of executing a step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config contains configuration settings consumed by the filters.
type Config struct {
	ExcludeFile     string   `mapstructure:"exclude-file"`
	IgnoreContacted bool     `mapstructure:"ignore-contacted"`
	Companies       []string `mapstructure:"blocked-companies"`
	KeepSkipped     bool     `mapstructure:"keep-skipped"`
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

type decisionCollector interface {
	Decisions() scoring.Decisions
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Default returns the standard pipeline: contacted history, exclude file,
// blocked companies and scoring.
func Default() []Filter {
	return []Filter{
		NewContacted(),
		NewExcludeFile(),
		NewCompanies(),
		NewScoring(),
	}
}

// Run executes the supplied filters sequentially, returning the remaining records
// and the scoring decisions collected along the way.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, r *record.Records) (*record.Records, scoring.Decisions, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	var decisions scoring.Decisions
	for _, step := range steps {
		if !step.IsEnabled() {
			deps.Logger.Info("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, deps, r)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		deps.Logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)
		deps.Metrics.Filtered(step.Name(), info.Dropped)

		r = next

		if collector, ok := step.(decisionCollector); ok {
			decisions = append(decisions, collector.Decisions()...)
		}
	}

	return r, decisions, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}
