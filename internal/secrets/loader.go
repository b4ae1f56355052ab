package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source describes where a secret may come from.
type Source struct {
	// Name is used in error messages.
	Name string
	// Value is an inline value from configuration or flags.
	Value string
	// File points to a file holding the secret. It takes precedence over Env and Value.
	File string
	// Env names an environment variable holding the secret. It takes precedence over Value.
	Env string
}

// Load resolves the secret from File, then Env, then Value. The result is trimmed.
// An error is returned when the winning source is empty or nothing is configured.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	if env := strings.TrimSpace(src.Env); env != "" {
		if secret := strings.TrimSpace(os.Getenv(env)); secret != "" {
			return secret, nil
		}
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		if src.Env != "" {
			return "", fmt.Errorf("%s is not configured (checked $%s)", name, strings.TrimSpace(src.Env))
		}
		return "", fmt.Errorf("%s is not configured", name)
	}
	return secret, nil
}

// Optional is Load for secrets that may legitimately be absent, like a redis
// password. Only file read errors are reported.
func Optional(src Source) (string, error) {
	if strings.TrimSpace(src.File) == "" {
		secret, err := Load(src)
		if err != nil {
			return "", nil
		}
		return secret, nil
	}
	return Load(src)
}
