package ruleset

import (
	"fmt"

	"github.com/spigell/candidate-screener/internal/rules"
	"github.com/spigell/candidate-screener/internal/scoring"
	"github.com/spigell/candidate-screener/internal/simple"
	"github.com/spigell/candidate-screener/internal/unified"
)

// Compile parses data in the given format and compiles it for the engine. Each
// format goes through its own compile path, so a simple config keeps its
// autoMode flag.
func Compile(engine *scoring.Engine, format Format, data []byte) (*scoring.Ruleset, error) {
	switch format {
	case Logical:
		tree, err := rules.Decode(data)
		if err != nil {
			return nil, err
		}
		return engine.CompileLogical(tree), nil
	case Unified:
		root, err := unified.Parse(data)
		if err != nil {
			return nil, err
		}
		return engine.Compile(root), nil
	case Simple:
		cfg, err := simple.Parse(data)
		if err != nil {
			return nil, err
		}
		return engine.CompileSimple(cfg), nil
	}
	return nil, fmt.Errorf("unknown rule format %q", format)
}
