// Package config provides YAML-based configuration loading with environment
// variable expansion.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation. Load validates
// targets that implement it right after unmarshalling.
type Validator interface {
	Validate() error
}

// Parse reads a YAML file, expands $VAR references from the environment, and
// unmarshals the result into target without validating it. Callers that
// overlay further values (flags, positional arguments) on top of the file
// validate once the merge is complete.
func Parse[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expandedData := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expandedData), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	return nil
}

// Load parses filename into target and runs its Validate hook if present.
func Load[T any](filename string, target *T) error {
	if err := Parse(filename, target); err != nil {
		return err
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}
