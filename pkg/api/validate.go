package api

import (
	"fmt"
	"strings"
)

// Template keys set by the engine for every step.
const (
	KeyDir    = "dir"
	KeyTmpDir = "tmpdir"
	KeyFile   = "file"
)

var reservedKeys = map[string]bool{
	KeyDir:    true,
	KeyTmpDir: true,
	KeyFile:   true,
}

// IsReserved reports whether key is set by the engine and may therefore
// not be used as a step name or a context key.
func IsReserved(key string) bool { return reservedKeys[key] }

// CheckContext returns an error naming the first reserved key in ctx.
func CheckContext(ctx map[string]any) error {
	for _, k := range []string{KeyDir, KeyTmpDir, KeyFile} {
		if _, ok := ctx[k]; ok {
			return fmt.Errorf("context key %q is reserved", k)
		}
	}
	return nil
}

// Validate checks the definition for errors.
func (d *Definition) Validate() error {
	if len(d.Steps) == 0 {
		return fmt.Errorf("definition has no steps")
	}
	if err := CheckContext(d.Context); err != nil {
		return err
	}

	names := make(map[string]int)

	for i, step := range d.Steps {
		if step.Name == "" {
			return fmt.Errorf("step %d: name is required", i)
		}
		if prev, exists := names[step.Name]; exists {
			return fmt.Errorf("step %d: duplicate step name %q (first defined at step %d)", i, step.Name, prev)
		}
		names[step.Name] = i

		if IsReserved(step.Name) {
			return fmt.Errorf("step %d: name %q is reserved", i, step.Name)
		}

		if err := validateStepConfig(step); err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}
	}

	return nil
}

func validateStepConfig(step StepConfig) error {
	switch step.Type {
	case StepTypePipe:
		return validatePipeConfig(step.Pipe)
	case StepTypeGenerate:
		return validateGenerateConfig(step.Generate)
	default:
		return fmt.Errorf("unknown type %q (valid: %s)", step.Type, strings.Join([]string{StepTypePipe, StepTypeGenerate}, ", "))
	}
}

func validatePipeConfig(cfg *PipeConfig) error {
	if cfg == nil {
		return fmt.Errorf("pipe config is required")
	}
	if len(cfg.Stages) == 0 {
		return fmt.Errorf("pipe.stages must not be empty")
	}
	for i, st := range cfg.Stages {
		if st.Action == "" {
			return fmt.Errorf("stage %d: action is required", i)
		}
		if (st.Command == "") == (len(st.Args) == 0) {
			return fmt.Errorf("stage %d: exactly one of command and args is required", i)
		}
		if len(st.Args) > 0 && st.Args[0] == "" {
			return fmt.Errorf("stage %d: args must start with a program name", i)
		}
	}
	if cfg.Each != nil && len(cfg.Each.Include) == 0 {
		return fmt.Errorf("pipe.each.include must not be empty")
	}

	in := cfg.Input
	if in.Capture {
		return fmt.Errorf("pipe.input cannot capture")
	}
	if in.Append {
		return fmt.Errorf("pipe.input cannot append")
	}
	if in.File != "" && in.Data != "" {
		return fmt.Errorf("pipe.input: file and data are mutually exclusive")
	}

	out := cfg.Output
	if out.Data != "" {
		return fmt.Errorf("pipe.output cannot take data")
	}
	if out.File != "" && out.Capture {
		return fmt.Errorf("pipe.output: file and capture are mutually exclusive")
	}
	if out.Append && out.File == "" {
		return fmt.Errorf("pipe.output.append requires pipe.output.file")
	}
	return nil
}

func validateGenerateConfig(cfg *GenerateConfig) error {
	if cfg == nil {
		return fmt.Errorf("generate config is required")
	}
	if cfg.Output == "" {
		return fmt.Errorf("generate.output is required")
	}
	if cfg.Template == "" {
		return fmt.Errorf("generate.template is required")
	}
	return nil
}
