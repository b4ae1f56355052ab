package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spigell/candidate-screener/internal/rules"
	"github.com/spigell/candidate-screener/internal/ruleset"
	"github.com/spigell/candidate-screener/internal/simple"
	"github.com/spigell/candidate-screener/internal/unified"
)

// storedRules returns the stored rule set of a format encoded as JSON.
func storedRules(ctx context.Context, repo *ruleset.Repository, format ruleset.Format) ([]byte, error) {
	var v any
	switch format {
	case ruleset.Logical:
		v = repo.Logical(ctx)
	case ruleset.Unified:
		v = repo.Unified(ctx)
	default:
		v = repo.Simple(ctx)
	}
	return json.MarshalIndent(v, "", "  ")
}

// saveRules stores already converted data under the format's key.
func saveRules(ctx context.Context, repo *ruleset.Repository, format ruleset.Format, data []byte) error {
	switch format {
	case ruleset.Logical:
		tree, err := rules.Decode(data)
		if err != nil {
			return err
		}
		return repo.SaveLogical(ctx, tree)
	case ruleset.Unified:
		root, err := unified.Parse(data)
		if err != nil {
			return err
		}
		return repo.SaveUnified(ctx, root)
	case ruleset.Simple:
		cfg, err := simple.Parse(data)
		if err != nil {
			return err
		}
		return repo.SaveSimple(ctx, cfg)
	}
	return fmt.Errorf("unknown rule format %q", format)
}
