package scoring

import (
	"errors"
	"fmt"
)

// Policy selects how the final score is aggregated. Both policies are valid
// deployments; there is deliberately no default.
type Policy string

const (
	// PolicyWeighted averages every counted rule's score by its weight.
	PolicyWeighted Policy = "weighted"
	// PolicyStagedKeyword passes or fails on the keyword stage alone.
	PolicyStagedKeyword Policy = "staged-keyword"
)

// Mode tells what to do with a passing candidate.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
)

const (
	DefaultAutoGreetThreshold  = 70
	DefaultPassScore           = 60
	DefaultSimilarityThreshold = 0.7
	DefaultNormalMultiplier    = 0.7
)

var ErrPolicyRequired = errors.New("scoring policy is required (weighted or staged-keyword)")

// CompanyPolicy configures company classification.
type CompanyPolicy struct {
	// Competitors are company names treated as competitors. Matching is a
	// case-insensitive substring match against the candidate's companies.
	Competitors []string `mapstructure:"competitors" json:"competitors,omitempty"`
	// KeywordGate scales a competitor's company score by the keyword stage.
	KeywordGate bool `mapstructure:"keyword-gate" json:"keywordGate"`
	// KeywordThreshold is the keyword score at which the gate fully opens.
	// Defaults to the pass score.
	KeywordThreshold float64 `mapstructure:"keyword-threshold" json:"keywordThreshold,omitempty"`
	// NormalMultiplier scales the company rule of an unlisted company.
	NormalMultiplier float64 `mapstructure:"normal-multiplier" json:"normalMultiplier,omitempty"`
}

// Config configures the engine.
type Config struct {
	Policy              Policy        `mapstructure:"policy" json:"policy"`
	Mode                Mode          `mapstructure:"mode" json:"mode"`
	AutoGreetThreshold  float64       `mapstructure:"auto-greet-threshold" json:"autoGreetThreshold"`
	PassScore           int           `mapstructure:"pass-score" json:"passScore"`
	SimilarityThreshold float64       `mapstructure:"similarity-threshold" json:"similarityThreshold"`
	Similarity          string        `mapstructure:"similarity" json:"similarity,omitempty"`
	Companies           CompanyPolicy `mapstructure:"companies" json:"companies"`
}

// WithDefaults fills every unset numeric knob and the mode. The policy is left
// alone.
func (c Config) WithDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModeManual
	}
	if c.AutoGreetThreshold <= 0 {
		c.AutoGreetThreshold = DefaultAutoGreetThreshold
	}
	if c.PassScore <= 0 {
		c.PassScore = DefaultPassScore
	}
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if c.Companies.KeywordThreshold <= 0 {
		c.Companies.KeywordThreshold = float64(c.PassScore)
	}
	if c.Companies.NormalMultiplier <= 0 {
		c.Companies.NormalMultiplier = DefaultNormalMultiplier
	}
	return c
}

// Validate checks the configuration after defaults were applied.
func (c Config) Validate() error {
	switch c.Policy {
	case PolicyWeighted, PolicyStagedKeyword:
	case "":
		return ErrPolicyRequired
	default:
		return fmt.Errorf("unknown scoring policy %q", c.Policy)
	}

	switch c.Mode {
	case ModeAuto, ModeManual:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}

	if c.AutoGreetThreshold > 100 {
		return fmt.Errorf("auto greet threshold %.0f is above 100", c.AutoGreetThreshold)
	}
	if c.PassScore > 100 {
		return fmt.Errorf("pass score %d is above 100", c.PassScore)
	}
	if c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold %.2f is above 1", c.SimilarityThreshold)
	}
	if c.Companies.NormalMultiplier > 1 {
		return fmt.Errorf("normal company multiplier %.2f is above 1", c.Companies.NormalMultiplier)
	}
	return nil
}
