// Package ruleset loads and saves rule sets and the contacted history through a
// storage backend. Reads never fail: anything missing or unreadable becomes the
// default value and a warning in the log.
package ruleset

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/candidate-screener/internal/adapter"
	"github.com/spigell/candidate-screener/internal/record"
	"github.com/spigell/candidate-screener/internal/rules"
	"github.com/spigell/candidate-screener/internal/simple"
	"github.com/spigell/candidate-screener/internal/storage"
	"github.com/spigell/candidate-screener/internal/unified"
)

const (
	LogicalKey   = "rules-logical"
	UnifiedKey   = "rules-unified"
	SimpleKey    = "rules-simple"
	ContactedKey = "contacted"
)

type Repository struct {
	store      storage.Store
	logger     *zap.Logger
	normalizer adapter.Normalizer
}

func NewRepository(store storage.Store, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{store: store, logger: logger, normalizer: adapter.Normalize}
}

func (r *Repository) load(ctx context.Context, key string) []byte {
	data, err := r.store.Load(ctx, key)
	if err != nil {
		r.logger.Warn("failed to load, using defaults", zap.String("key", key), zap.Error(err))
		return nil
	}
	return data
}

func (r *Repository) save(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.store.Save(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Logical returns the saved condition tree or an empty root.
func (r *Repository) Logical(ctx context.Context) *rules.Node {
	data := r.load(ctx, LogicalKey)
	if data == nil {
		return rules.NewRoot()
	}

	tree, err := rules.Decode(data)
	if err != nil {
		r.logger.Warn("stored condition tree is malformed, using an empty root", zap.Error(err))
		return rules.NewRoot()
	}
	return r.normalizer.Logical(tree)
}

func (r *Repository) SaveLogical(ctx context.Context, tree *rules.Node) error {
	return r.save(ctx, LogicalKey, r.normalizer.Logical(tree))
}

// Unified returns the saved unified rule set or an empty AND root.
func (r *Repository) Unified(ctx context.Context) *unified.Rule {
	data := r.load(ctx, UnifiedKey)
	if data == nil {
		return r.normalizer.Unified(nil)
	}

	root, err := unified.Parse(data)
	if err != nil {
		r.logger.Warn("stored unified rules are malformed, using an empty root", zap.Error(err))
		return r.normalizer.Unified(nil)
	}
	return r.normalizer.Unified(root)
}

func (r *Repository) SaveUnified(ctx context.Context, root *unified.Rule) error {
	return r.save(ctx, UnifiedKey, r.normalizer.Unified(root))
}

// Simple returns the saved simple rules or simple.Default.
func (r *Repository) Simple(ctx context.Context) simple.Config {
	data := r.load(ctx, SimpleKey)
	if data == nil {
		return simple.Default()
	}

	cfg, err := simple.Parse(data)
	if err != nil {
		r.logger.Warn("stored simple rules are malformed, using defaults", zap.Error(err))
		return simple.Default()
	}
	return r.normalizer.Simple(cfg)
}

func (r *Repository) SaveSimple(ctx context.Context, cfg simple.Config) error {
	return r.save(ctx, SimpleKey, r.normalizer.Simple(cfg))
}

// Contacted returns the history of already processed candidates.
func (r *Repository) Contacted(ctx context.Context) *record.ContactedRecords {
	data := r.load(ctx, ContactedKey)

	contacted, err := record.DecodeContacted(data)
	if err != nil {
		r.logger.Warn("stored contacted history is malformed, starting over", zap.Error(err))
		return &record.ContactedRecords{}
	}
	return contacted
}

func (r *Repository) SaveContacted(ctx context.Context, contacted *record.ContactedRecords) error {
	return r.save(ctx, ContactedKey, contacted)
}

// Remove drops a stored rule set so the next load returns defaults.
func (r *Repository) Remove(ctx context.Context, format Format) error {
	key, err := format.key()
	if err != nil {
		return err
	}
	return r.store.Remove(ctx, key)
}
