package steps

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/systemstart/procpipe/pkg/api"
	"github.com/systemstart/procpipe/pkg/proc"
)

type generateStep struct {
	name string
	cfg  *api.GenerateConfig
}

// NewGenerateStep creates a step that writes a rendered support file, such
// as a function file or a label sheet consumed by a later pipe step.
func NewGenerateStep(name string, cfg *api.GenerateConfig) Step {
	return &generateStep{name: name, cfg: cfg}
}

func (s *generateStep) Name() string { return s.name }

func (s *generateStep) Run(ctx StepContext) (*StepResult, error) {
	output, err := render(s.name+".output", s.cfg.Output, ctx.TemplateData)
	if err != nil {
		return nil, fmt.Errorf("output path: %w", err)
	}

	tmpl, err := parseTemplate(s.name, s.cfg.Template)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx.TemplateData); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}

	outPath := output
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(ctx.WorkDir, outPath)
	}

	if ctx.Options.DryRun {
		fmt.Fprintf(ctx.Options.DiagWriter(), "%s write %s (%d bytes)\n", proc.CommentMarker, proc.Quote(outPath), buf.Len())
		return &StepResult{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating parent directories: %w", err)
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o600); err != nil {
		return nil, fmt.Errorf("writing output file: %w", err)
	}

	slog.Info("generate step wrote file", "step", s.name, "output", outPath)
	return &StepResult{}, nil
}
