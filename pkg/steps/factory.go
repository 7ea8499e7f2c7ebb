package steps

import (
	"fmt"

	"github.com/systemstart/procpipe/pkg/api"
)

// NewStep creates a Step implementation from a StepConfig.
func NewStep(cfg api.StepConfig) (Step, error) {
	switch cfg.Type {
	case api.StepTypePipe:
		return NewPipeStep(cfg.Name, cfg.Pipe), nil
	case api.StepTypeGenerate:
		return NewGenerateStep(cfg.Name, cfg.Generate), nil
	default:
		return nil, fmt.Errorf("unknown step type: %s", cfg.Type)
	}
}
