package processing

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/systemstart/procpipe/pkg/api"
	"github.com/systemstart/procpipe/pkg/proc"
	"github.com/systemstart/procpipe/pkg/steps"
)

// RunDefinition executes a single definition's steps sequentially. Captured
// pipe output is trimmed and stored in the template data under the step's
// name for the steps that follow.
func RunDefinition(def *api.Definition, globalContext map[string]any, opts proc.Options) error {
	data, err := MergeContext(globalContext, def.Context)
	if err != nil {
		return err
	}
	data[api.KeyDir] = def.Dir

	opts.Dir = def.Dir
	opts.Env = mergeEnv(opts.Env, def.Env)

	if def.TempDir {
		tmp, cleanup, err := makeTempDir(opts.DryRun)
		if err != nil {
			return err
		}
		defer cleanup()
		data[api.KeyTmpDir] = tmp
	}

	for _, stepCfg := range def.Steps {
		if err := cancelled(opts); err != nil {
			return fmt.Errorf("cancelled before step %q: %w", stepCfg.Name, err)
		}
		slog.Info("running step", "definition", def.FilePath, "step", stepCfg.Name, "type", stepCfg.Type)
		if err := runStep(stepCfg, def, data, opts); err != nil {
			return err
		}
	}

	return nil
}

// RunFile loads a definition file and runs it.
func RunFile(filename string, globalContext map[string]any, opts proc.Options) error {
	def, err := api.LoadDefinition(filename)
	if err != nil {
		return fmt.Errorf("loading definition: %w", err)
	}
	return RunDefinition(def, globalContext, opts)
}

func runStep(stepCfg api.StepConfig, def *api.Definition, data map[string]any, opts proc.Options) error {
	step, err := steps.NewStep(stepCfg)
	if err != nil {
		return fmt.Errorf("creating step %q: %w", stepCfg.Name, err)
	}

	result, err := step.Run(steps.StepContext{
		WorkDir:      def.Dir,
		TemplateData: data,
		Options:      opts,
	})
	if err != nil {
		return fmt.Errorf("step %q failed: %w", stepCfg.Name, err)
	}

	if result != nil && result.Captured {
		data[stepCfg.Name] = strings.TrimSpace(string(result.Output))
		slog.Debug("captured step output", "step", stepCfg.Name, "bytes", len(result.Output))
	}
	return nil
}

// makeTempDir creates the scratch directory of a run. In dry-run mode
// nothing is created and a stable placeholder path is returned instead.
func makeTempDir(dryRun bool) (string, func(), error) {
	if dryRun {
		return filepath.Join(os.TempDir(), "procpipe-dry-run"), func() {}, nil
	}

	dir, err := os.MkdirTemp("", "procpipe-")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp directory: %w", err)
	}
	slog.Debug("created temp directory", "path", dir)

	return dir, func() {
		slog.Debug("removing temp directory", "path", dir)
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("failed to remove temp directory", "path", dir, "error", err)
		}
	}, nil
}

func cancelled(opts proc.Options) error {
	if opts.Context == nil {
		return nil
	}
	return opts.Context.Err()
}

func mergeEnv(base, local map[string]string) map[string]string {
	if len(local) == 0 {
		return base
	}
	merged := make(map[string]string, len(base)+len(local))
	maps.Copy(merged, base)
	maps.Copy(merged, local)
	return merged
}

// RunAll discovers definitions below root, executes each and returns an
// error naming the ones that failed.
func RunAll(root string, maxDepth int, globalContext map[string]any, opts proc.Options) error {
	defs, err := Discover(root, maxDepth)
	if err != nil {
		return fmt.Errorf("discovering definitions: %w", err)
	}

	if len(defs) == 0 {
		slog.Warn("no "+api.DefinitionFilename+" files found", "dir", root)
		return nil
	}

	slog.Info("discovered definitions", "count", len(defs))

	var failed []string
	for _, d := range defs {
		if err := cancelled(opts); err != nil {
			return fmt.Errorf("cancelled before %s: %w", d.FilePath, err)
		}
		slog.Info("executing definition", "path", d.FilePath)
		if dErr := RunDefinition(d, globalContext, opts); dErr != nil {
			slog.Error("definition failed", "path", d.FilePath, "error", dErr)
			failed = append(failed, d.FilePath)
		} else {
			slog.Info("definition succeeded", "path", d.FilePath)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d definition(s) failed: %v", len(failed), failed)
	}

	return nil
}
