package processing

import (
	"fmt"
	"maps"
	"os"

	"github.com/systemstart/procpipe/pkg/api"
	"gopkg.in/yaml.v3"
)

// LoadContextFile reads the global template context from a YAML file. Keys
// the engine sets itself (dir, tmpdir, file) are rejected.
func LoadContextFile(filename string) (map[string]any, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading context file: %w", err)
	}

	var ctx map[string]any
	if err := yaml.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("parsing context file: %w", err)
	}
	if err := api.CheckContext(ctx); err != nil {
		return nil, fmt.Errorf("context file %s: %w", filename, err)
	}

	if ctx == nil {
		ctx = make(map[string]any)
	}
	return ctx, nil
}

// MergeContext layers a definition's context over the global one into a
// fresh map that the run may extend with captured values. Neither layer may
// set a reserved key.
func MergeContext(global, local map[string]any) (map[string]any, error) {
	if err := api.CheckContext(global); err != nil {
		return nil, fmt.Errorf("global context: %w", err)
	}
	if err := api.CheckContext(local); err != nil {
		return nil, fmt.Errorf("definition context: %w", err)
	}

	merged := make(map[string]any, len(global)+len(local)+2)
	maps.Copy(merged, global)
	maps.Copy(merged, local)
	return merged, nil
}
