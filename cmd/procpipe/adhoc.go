package main

import (
	"fmt"
	"strings"

	"github.com/systemstart/procpipe/pkg/proc"
	"github.com/systemstart/procpipe/pkg/steps"
)

const stageSeparator = "|"

// splitStages turns the positional arguments into one argv per stage.
// A single argument is parsed as a shell-quoted command line; otherwise
// stages are separated by a literal "|" argument.
func splitStages(args []string) ([][]string, error) {
	stages, err := splitArgs(args)
	if err != nil {
		return nil, err
	}
	for i, argv := range stages {
		if argv[0] == "" {
			return nil, fmt.Errorf("stage %d: empty program name", i+1)
		}
	}
	return stages, nil
}

func splitArgs(args []string) ([][]string, error) {
	if len(args) == 1 && strings.ContainsAny(args[0], " \t|") {
		return steps.ParsePipeline(args[0])
	}

	var stages [][]string
	var cur []string
	for _, a := range args {
		if a == stageSeparator {
			if len(cur) == 0 {
				return nil, fmt.Errorf("empty stage before %q", stageSeparator)
			}
			stages = append(stages, cur)
			cur = nil
			continue
		}
		cur = append(cur, a)
	}
	if len(cur) == 0 {
		return nil, fmt.Errorf("empty stage after %q", stageSeparator)
	}
	return append(stages, cur), nil
}

// adHocRequest builds the request for a command line given on the
// command line, one "run <program>" action per stage.
func adHocRequest(args []string, input, output string, appendOutput bool) (*proc.Request, error) {
	argvs, err := splitStages(args)
	if err != nil {
		return nil, err
	}

	specs := make([]proc.Spec, len(argvs))
	actions := make([]string, len(argvs))
	for i, argv := range argvs {
		specs[i] = proc.NewSpec(argv...)
		actions[i] = "run " + argv[0]
	}

	in := proc.Inherit()
	if input != "" {
		in = proc.ReadFile(input)
	}
	out := proc.Inherit()
	switch {
	case output != "" && appendOutput:
		out = proc.AppendFile(output)
	case output != "":
		out = proc.WriteFile(output)
	}

	return proc.NewRequest(specs, actions, in, out), nil
}

func runAdHoc(args []string, opts proc.Options) error {
	req, err := adHocRequest(args, inputFile, outputFile, appendOutput)
	if err != nil {
		return err
	}
	_, err = proc.Run(req, opts)
	return err
}
