// Package ai describes the rule recommendation collaborator and applies its
// suggestions to a simple rule set.
package ai

import (
	"context"
	"time"

	"github.com/spigell/candidate-screener/internal/record"
)

// Calibration is one past decision offered to the recommender as context.
type Calibration struct {
	CandidateID string    `json:"candidateId"`
	Position    string    `json:"position,omitempty"`
	Action      string    `json:"action"`
	DecidedAt   time.Time `json:"decidedAt,omitzero"`
}

// SuggestedRule patches the simple rule of one category.
type SuggestedRule struct {
	Category  string   `json:"category"`
	Keywords  []string `json:"keywords"`
	MustMatch *bool    `json:"mustMatch,omitempty"`
	PassScore *int     `json:"passScore,omitempty"`
}

// Suggestion is what a recommender proposes for a position.
type Suggestion struct {
	Rules       []SuggestedRule `json:"rules"`
	Companies   []string        `json:"companies"`
	Keywords    []string        `json:"keywords"`
	Explanation string          `json:"explanation"`
	Raw         string          `json:"-"`
}

type Recommender interface {
	Recommend(ctx context.Context, position string, history []Calibration) (*Suggestion, error)
}

// HistoryFromContacted turns the contacted list into calibration entries, newest
// last, keeping at most limit entries (all when limit <= 0).
func HistoryFromContacted(contacted *record.ContactedRecords, limit int) []Calibration {
	if contacted == nil {
		return nil
	}
	items := contacted.Items
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}

	history := make([]Calibration, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		history = append(history, Calibration{
			CandidateID: item.ID,
			Position:    item.Position,
			Action:      item.Action,
			DecidedAt:   item.ContactedAt,
		})
	}
	return history
}
