package steps

import "github.com/systemstart/procpipe/pkg/proc"

// StepContext provides the runtime context for a step.
type StepContext struct {
	WorkDir      string
	TemplateData map[string]any
	Options      proc.Options
}

// StepResult holds the output of a step.
type StepResult struct {
	Output   []byte // stdout of a capturing pipe step
	Captured bool
}

// Step is the interface all definition steps implement.
type Step interface {
	Name() string
	Run(ctx StepContext) (*StepResult, error)
}
