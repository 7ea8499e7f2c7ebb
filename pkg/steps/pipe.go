package steps

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/systemstart/procpipe/pkg/api"
	"github.com/systemstart/procpipe/pkg/proc"
)

type pipeStep struct {
	name string
	cfg  *api.PipeConfig
}

// NewPipeStep creates a step that runs a process pipeline.
func NewPipeStep(name string, cfg *api.PipeConfig) Step {
	return &pipeStep{name: name, cfg: cfg}
}

func (s *pipeStep) Name() string { return s.name }

func (s *pipeStep) Run(ctx StepContext) (*StepResult, error) {
	if s.cfg.Each == nil {
		return s.runOnce(ctx, ctx.TemplateData)
	}

	files, err := filterFiles(os.DirFS(ctx.WorkDir), s.cfg.Each.Include, s.cfg.Each.Exclude)
	if err != nil {
		return nil, fmt.Errorf("filtering files: %w", err)
	}
	if len(files) == 0 {
		slog.Warn("pipe step matched no files", "step", s.name, "include", s.cfg.Each.Include)
	}
	slog.Info("pipe step processing files", "step", s.name, "count", len(files))

	result := &StepResult{Captured: s.cfg.Output.Capture}
	var captured [][]byte
	for _, file := range files {
		data := maps.Clone(ctx.TemplateData)
		if data == nil {
			data = make(map[string]any)
		}
		data[api.KeyFile] = filepath.ToSlash(file)

		res, err := s.runOnce(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("processing %s: %w", file, err)
		}
		if res.Captured {
			captured = append(captured, bytes.TrimRight(res.Output, "\n"))
		}
	}
	if result.Captured {
		result.Output = bytes.Join(captured, []byte("\n"))
	}
	return result, nil
}

func (s *pipeStep) runOnce(ctx StepContext, data map[string]any) (*StepResult, error) {
	req, stdin, err := s.request(data)
	if err != nil {
		return nil, err
	}

	opts := ctx.Options
	opts.Dir = ctx.WorkDir

	out, res, err := proc.Output(req, opts, stdin)
	if err != nil {
		return nil, err
	}
	slog.Debug("pipe step finished", "step", s.name, "codes", res.ExitCodes)

	result := &StepResult{Captured: s.cfg.Output.Capture}
	if result.Captured {
		if res.DryRun {
			// Later steps see a readable stand-in for the value.
			out = []byte("<" + s.name + ">")
		}
		result.Output = out
	}
	return result, nil
}

// request renders the stages and endpoints against data. A command line is
// rendered before it is split, so values containing blanks must be quoted
// in the template, e.g. {{ .file | squote }}.
func (s *pipeStep) request(data map[string]any) (*proc.Request, io.Reader, error) {
	stages := make([]proc.Spec, 0, len(s.cfg.Stages))
	actions := make([]string, 0, len(s.cfg.Stages))

	for i, st := range s.cfg.Stages {
		name := fmt.Sprintf("%s.stages[%d]", s.name, i)
		var argv []string
		if st.Command != "" {
			line, err := render(name, st.Command, data)
			if err != nil {
				return nil, nil, fmt.Errorf("stage %d: command: %w", i, err)
			}
			if argv, err = ParseCommand(line); err != nil {
				return nil, nil, fmt.Errorf("stage %d: %w", i, err)
			}
		} else {
			argv = make([]string, len(st.Args))
			for j, a := range st.Args {
				r, err := render(name, a, data)
				if err != nil {
					return nil, nil, fmt.Errorf("stage %d: argument %d: %w", i, j, err)
				}
				argv[j] = r
			}
		}
		if argv[0] == "" {
			return nil, nil, fmt.Errorf("stage %d: program name renders empty", i)
		}

		action, err := render(name+".action", st.Action, data)
		if err != nil {
			return nil, nil, fmt.Errorf("stage %d: action: %w", i, err)
		}

		stages = append(stages, proc.NewSpec(argv...))
		actions = append(actions, action)
	}

	in, stdin, err := s.input(data)
	if err != nil {
		return nil, nil, err
	}
	out, err := s.output(data)
	if err != nil {
		return nil, nil, err
	}
	return proc.NewRequest(stages, actions, in, out), stdin, nil
}

func (s *pipeStep) input(data map[string]any) (proc.Endpoint, io.Reader, error) {
	cfg := s.cfg.Input
	switch {
	case cfg.File != "":
		path, err := render(s.name+".input", cfg.File, data)
		if err != nil {
			return proc.Endpoint{}, nil, fmt.Errorf("input file: %w", err)
		}
		return proc.ReadFile(path), nil, nil
	case cfg.Data != "":
		text, err := render(s.name+".input", cfg.Data, data)
		if err != nil {
			return proc.Endpoint{}, nil, fmt.Errorf("input data: %w", err)
		}
		return proc.Pipe(), strings.NewReader(text), nil
	default:
		return proc.Inherit(), nil, nil
	}
}

func (s *pipeStep) output(data map[string]any) (proc.Endpoint, error) {
	cfg := s.cfg.Output
	switch {
	case cfg.File != "":
		path, err := render(s.name+".output", cfg.File, data)
		if err != nil {
			return proc.Endpoint{}, fmt.Errorf("output file: %w", err)
		}
		if cfg.Append {
			return proc.AppendFile(path), nil
		}
		return proc.WriteFile(path), nil
	case cfg.Capture:
		return proc.Pipe(), nil
	default:
		return proc.Inherit(), nil
	}
}
