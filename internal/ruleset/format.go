package ruleset

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spigell/candidate-screener/internal/adapter"
	"github.com/spigell/candidate-screener/internal/rules"
	"github.com/spigell/candidate-screener/internal/simple"
	"github.com/spigell/candidate-screener/internal/unified"
)

// Format names one of the three rule representations.
type Format string

const (
	Logical Format = "logical"
	Unified Format = "unified"
	Simple  Format = "simple"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Logical, Unified, Simple:
		return f, nil
	default:
		return "", fmt.Errorf("unknown rule format %q (want logical, unified or simple)", s)
	}
}

func (f Format) key() (string, error) {
	switch f {
	case Logical:
		return LogicalKey, nil
	case Unified:
		return UnifiedKey, nil
	case Simple:
		return SimpleKey, nil
	}
	return "", fmt.Errorf("unknown rule format %q", f)
}

// Decode parses data in the given format into a normalized unified rule set.
func Decode(format Format, data []byte) (*unified.Rule, error) {
	switch format {
	case Logical:
		tree, err := rules.Decode(data)
		if err != nil {
			return nil, err
		}
		return adapter.Normalize.Unified(adapter.LogicalToUnified(tree)), nil
	case Unified:
		root, err := unified.Parse(data)
		if err != nil {
			return nil, err
		}
		return adapter.Normalize.Unified(root), nil
	case Simple:
		cfg, err := simple.Parse(data)
		if err != nil {
			return nil, err
		}
		return adapter.Normalize.Unified(adapter.SimpleToUnified(adapter.Normalize.Simple(cfg))), nil
	}
	return nil, fmt.Errorf("unknown rule format %q", format)
}

// Encode renders a unified rule set in the given format.
func Encode(format Format, root *unified.Rule) ([]byte, error) {
	var v any
	switch format {
	case Logical:
		v = adapter.Normalize.Logical(adapter.UnifiedToLogical(root))
	case Unified:
		v = adapter.Normalize.Unified(root)
	case Simple:
		v = adapter.Normalize.Simple(adapter.UnifiedToSimple(root))
	default:
		return nil, fmt.Errorf("unknown rule format %q", format)
	}
	return json.MarshalIndent(v, "", "  ")
}

// Normalize parses data in the given format and re-encodes it normalized in the
// same format, keeping format-specific settings like autoMode.
func Normalize(format Format, data []byte) ([]byte, error) {
	var v any
	switch format {
	case Logical:
		tree, err := rules.Decode(data)
		if err != nil {
			return nil, err
		}
		v = adapter.Normalize.Logical(tree)
	case Unified:
		root, err := unified.Parse(data)
		if err != nil {
			return nil, err
		}
		v = adapter.Normalize.Unified(root)
	case Simple:
		cfg, err := simple.Parse(data)
		if err != nil {
			return nil, err
		}
		v = adapter.Normalize.Simple(cfg)
	default:
		return nil, fmt.Errorf("unknown rule format %q", format)
	}
	return json.MarshalIndent(v, "", "  ")
}

// Convert re-encodes data from one format into another. Converting a format
// into itself is Normalize.
func Convert(data []byte, from, to Format) ([]byte, error) {
	if from == to {
		return Normalize(from, data)
	}
	root, err := Decode(from, data)
	if err != nil {
		return nil, err
	}
	return Encode(to, root)
}
