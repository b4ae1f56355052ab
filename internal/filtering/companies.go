package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/candidate-screener/internal/record"
)

type companiesFilter struct {
	companies []string
}

// NewCompanies creates a filter that removes candidates currently employed by a
// blocked company. Matching is a case-insensitive substring match.
func NewCompanies() Filter {
	return &companiesFilter{}
}

func (f *companiesFilter) Name() string { return "blocked_companies" }

func (f *companiesFilter) Disable(string) {}

func (f *companiesFilter) IsEnabled() bool { return true }

func (f *companiesFilter) Validate(cfg *Config) error {
	f.companies = nil
	if cfg == nil {
		return nil
	}
	for _, c := range cfg.Companies {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			f.companies = append(f.companies, c)
		}
	}
	return nil
}

func (f *companiesFilter) Apply(_ context.Context, deps Deps, r *record.Records) (*record.Records, Step, error) {
	initial := r.Len()
	if len(f.companies) == 0 {
		return r, Step{Initial: initial, Left: r.Len()}, nil
	}

	excluded := r.ExcludeFunc(f.blocked)
	if len(excluded) > 0 {
		deps.Logger.Info("excluding candidates by company",
			zap.Strings("blocked_companies", f.companies),
			zap.Strings("excluded_candidates", excluded),
			zap.Int("candidates_left", r.Len()),
		)
	}

	return r, Step{Initial: initial, Dropped: len(excluded), Left: r.Len()}, nil
}

func (f *companiesFilter) blocked(rec record.Record) bool {
	for _, company := range rec.Texts(record.FieldCompany) {
		company = strings.ToLower(company)
		for _, blocked := range f.companies {
			if strings.Contains(company, blocked) {
				return true
			}
		}
	}
	return false
}

func (f *companiesFilter) Status() Status {
	details := map[string]string{}
	if len(f.companies) > 0 {
		details["companies"] = strings.Join(f.companies, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
