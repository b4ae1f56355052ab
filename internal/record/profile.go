package record

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Profile is the typed view of the well-known record keys. Scalars arriving where a
// list is expected are wrapped into single-element lists.
type Profile struct {
	ID        string   `mapstructure:"id"`
	Name      string   `mapstructure:"name"`
	Position  string   `mapstructure:"position"`
	Companies []string `mapstructure:"company"`
	Skills    []string `mapstructure:"skills"`
	Schools   []string `mapstructure:"schools"`
	Education string   `mapstructure:"education"`
}

// Profile decodes the well-known keys of the record. Unknown keys are ignored.
func (r Record) Profile() (Profile, error) {
	var p Profile

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &p,
	})
	if err != nil {
		return p, fmt.Errorf("create profile decoder: %w", err)
	}

	if err := decoder.Decode(map[string]any(r)); err != nil {
		return p, fmt.Errorf("decode profile: %w", err)
	}

	return p, nil
}
