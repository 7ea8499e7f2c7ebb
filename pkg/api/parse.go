package api

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadDefinition reads a definition file, sets Dir/FilePath, and validates it.
func LoadDefinition(filename string) (*Definition, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading definition file: %w", err)
	}

	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing definition file: %w", err)
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}
	d.FilePath = absPath
	d.Dir = filepath.Dir(absPath)

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("validating definition %s: %w", filename, err)
	}

	return &d, nil
}
