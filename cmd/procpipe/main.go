package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/systemstart/procpipe/pkg/config"
	"github.com/systemstart/procpipe/pkg/logging"
	"github.com/systemstart/procpipe/pkg/proc"
	"github.com/systemstart/procpipe/pkg/processing"
)

var version = "dev"

const (
	_ = iota
	exitCancelled
	exitUsage
	exitDotenvError
	exitConfigError
	exitLoggingSetupFailed
	exitStdioSetupFailed
	exitLoadContextFailed
	exitCommandFailed
	exitToolErrors
)

var (
	dryRun         bool
	verbose        bool
	definitionFile string
	discoveryRoot  string
	maxDepth       int
	contextFile    string
	inputFile      string
	outputFile     string
	appendOutput   bool
	loggingType    string
	logLevel       string
	showVersion    bool
)

func init() {
	defaults := config.Default()

	flag.BoolVar(
		&dryRun,
		"N",
		false,
		"dry run: print the commands without executing them")
	flag.BoolVar(
		&verbose,
		"V",
		false,
		"verbose: print each command before executing it")
	flag.StringVar(
		&definitionFile,
		"f",
		"",
		"run a single .procpipe.yaml definition file")
	flag.StringVar(
		&discoveryRoot,
		"d",
		"",
		"run every .procpipe.yaml below this directory")
	flag.IntVar(
		&maxDepth,
		"max-depth",
		defaults.MaxDepth,
		"max directory recursion depth for -d (-1 = unlimited, 0 = root only)")
	flag.StringVar(
		&contextFile,
		"context-file",
		"",
		"global context YAML file merged under each definition's context")
	flag.StringVar(
		&inputFile,
		"i",
		"",
		"ad-hoc mode: read the first stage's input from this file")
	flag.StringVar(
		&outputFile,
		"o",
		"",
		"ad-hoc mode: write the last stage's output to this file")
	flag.BoolVar(
		&appendOutput,
		"append",
		false,
		"ad-hoc mode: append to -o instead of truncating it")
	flag.StringVar(
		&loggingType,
		"logging-type",
		defaults.LoggingType,
		"logging type: json, text or tint")
	flag.StringVar(
		&logLevel,
		"log-level",
		defaults.LogLevel,
		"logging level: debug, info, warn, error")
	flag.BoolVar(
		&showVersion,
		"version",
		false,
		"print version and exit")
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: procpipe [flags] -f file.yaml\n")
	fmt.Fprintf(out, "       procpipe [flags] -d directory\n")
	fmt.Fprintf(out, "       procpipe [flags] [-i in] [-o out [-append]] prog args... '|' prog args...\n\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	envErr := godotenv.Load()
	applyEnvConfig()

	if err := logging.Initialize(os.Stderr, loggingType, logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "procpipe: %v\n", err)
		os.Exit(exitLoggingSetupFailed)
	}

	reportEnv(envErr)
	checkMode()

	if err := proc.SetupStdio(); err != nil {
		fmt.Fprintf(os.Stderr, "procpipe: %v\n", err)
		os.Exit(exitStdioSetupFailed)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	opts := proc.Options{Verbose: verbose, DryRun: dryRun, Context: ctx}

	var err error
	switch {
	case definitionFile != "":
		err = processing.RunFile(definitionFile, loadGlobalContext(), opts)
	case discoveryRoot != "":
		err = processing.RunAll(discoveryRoot, maxDepth, loadGlobalContext(), opts)
	default:
		err = runAdHoc(flag.Args(), opts)
	}

	if tErr := proc.TeardownStdio(); tErr != nil {
		slog.Warn("failed to release standard streams", "error", tErr)
	}

	code := exitStatus(os.Stderr, err, ctx.Err() != nil)
	stop()
	if code != 0 {
		os.Exit(code)
	}
	slog.Info("done")
}

// checkMode exits unless exactly one of -f, -d and an ad-hoc command line
// was given.
func checkMode() {
	modes := 0
	for _, set := range []bool{definitionFile != "", discoveryRoot != "", flag.NArg() > 0} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		fmt.Fprintln(os.Stderr, "procpipe: exactly one of -f, -d or a command line is required")
		flag.Usage()
		os.Exit(exitUsage)
	}

	adHoc := flag.NArg() > 0
	if !adHoc && (inputFile != "" || outputFile != "" || appendOutput) {
		fmt.Fprintln(os.Stderr, "procpipe: -i, -o and -append only apply to a command line")
		os.Exit(exitUsage)
	}
	if appendOutput && outputFile == "" {
		fmt.Fprintln(os.Stderr, "procpipe: -append requires -o")
		os.Exit(exitUsage)
	}
}

// exitStatus reports the outcome of a run on w and returns the process exit
// code. An interrupted run is reported as cancelled whatever error the
// killed stages produced.
func exitStatus(w io.Writer, err error, cancelled bool) int {
	if cancelled {
		slog.Debug("run cancelled", "error", err)
		fmt.Fprintln(w, "*cancelled*")
		return exitCancelled
	}
	if err == nil {
		return 0
	}

	slog.Debug("run failed", "error", err)

	var perr *proc.Error
	if errors.As(err, &perr) {
		fmt.Fprintf(w, "procpipe: %v\n", perr)
		return exitCommandFailed
	}
	fmt.Fprintf(w, "procpipe: %v\n", err)
	return exitToolErrors
}

func loadGlobalContext() map[string]any {
	if contextFile == "" {
		return nil
	}

	ctx, err := processing.LoadContextFile(contextFile)
	if err != nil {
		slog.Error("failed to load context file", "filename", contextFile, "error", err)
		os.Exit(exitLoadContextFailed)
	}
	return ctx
}

// applyEnvConfig fills every flag not given on the command line from the
// PROCPIPE_* environment.
func applyEnvConfig() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "procpipe: %v\n", err)
		os.Exit(exitConfigError)
	}

	applyConfig(cfg, explicitFlags(flag.CommandLine))
}

func explicitFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// applyConfig copies cfg into the flag variables, skipping the flags named
// in set so that the command line wins over the environment.
func applyConfig(cfg *config.Config, set map[string]bool) {
	if !set["logging-type"] {
		loggingType = cfg.LoggingType
	}
	if !set["log-level"] {
		logLevel = cfg.LogLevel
	}
	if !set["V"] {
		verbose = cfg.Verbose
	}
	if !set["N"] {
		dryRun = cfg.DryRun
	}
	if !set["max-depth"] {
		maxDepth = cfg.MaxDepth
	}
	if !set["context-file"] {
		contextFile = cfg.ContextFile
	}
}

func reportEnv(err error) {
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to load .env", "error", err)
			os.Exit(exitDotenvError)
		}
		slog.Debug("no .env file found")
	} else {
		slog.Info("using .env file")
	}
}
