package api

import (
	"strings"
	"testing"
)

func catStage(action string) StageConfig {
	return StageConfig{Action: action, Args: []string{"cat"}}
}

func TestValidate_ValidDefinition(t *testing.T) {
	d := &Definition{
		TempDir: true,
		Steps: []StepConfig{
			{
				Name: "cal",
				Type: StepTypeGenerate,
				Generate: &GenerateConfig{
					Output:   "{{ .tmpdir }}/pc0.cal",
					Template: "mult={{ .mult }};",
				},
			},
			{
				Name: "values",
				Type: StepTypePipe,
				Pipe: &PipeConfig{
					Each: &FileFilter{Include: []string{"*.hdr"}},
					Stages: []StageConfig{
						{Action: "filter image values", Command: "pfilt -1 -x 128 {{ .file }}"},
						{Action: "extract image values", Args: []string{"pvalue", "-o", "-h"}},
					},
					Output: EndpointConfig{File: "{{ .tmpdir }}/values", Append: true},
				},
			},
			{
				Name: "lmin",
				Type: StepTypePipe,
				Pipe: &PipeConfig{
					Stages: []StageConfig{catStage("extract lower limit")},
					Input:  EndpointConfig{File: "{{ .tmpdir }}/values"},
					Output: EndpointConfig{Capture: true},
				},
			},
			{
				Name: "labels",
				Type: StepTypePipe,
				Pipe: &PipeConfig{
					Stages: []StageConfig{catStage("create scale labels")},
					Input:  EndpointConfig{Data: "{{ .lmin }}\n"},
				},
			},
		},
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("expected valid definition, got error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	pipe := func(cfg *PipeConfig) *Definition {
		return &Definition{Steps: []StepConfig{{Name: "p", Type: StepTypePipe, Pipe: cfg}}}
	}
	one := []StageConfig{catStage("copy")}

	tests := []struct {
		name string
		def  *Definition
		want string
	}{
		{"no steps", &Definition{}, "no steps"},
		{
			"missing name",
			&Definition{Steps: []StepConfig{{Type: StepTypePipe, Pipe: &PipeConfig{Stages: one}}}},
			"name is required",
		},
		{
			"duplicate name",
			&Definition{Steps: []StepConfig{
				{Name: "a", Type: StepTypePipe, Pipe: &PipeConfig{Stages: one}},
				{Name: "a", Type: StepTypePipe, Pipe: &PipeConfig{Stages: one}},
			}},
			"duplicate step name",
		},
		{
			"reserved name",
			&Definition{Steps: []StepConfig{{Name: "tmpdir", Type: StepTypePipe, Pipe: &PipeConfig{Stages: one}}}},
			"is reserved",
		},
		{
			"reserved context key",
			&Definition{
				Context: map[string]any{"tmpdir": "/scratch"},
				Steps:   []StepConfig{{Name: "a", Type: StepTypePipe, Pipe: &PipeConfig{Stages: one}}},
			},
			`context key "tmpdir" is reserved`,
		},
		{"unknown type", &Definition{Steps: []StepConfig{{Name: "a", Type: "helm"}}}, "unknown type"},
		{"missing pipe config", &Definition{Steps: []StepConfig{{Name: "a", Type: StepTypePipe}}}, "pipe config is required"},
		{"no stages", pipe(&PipeConfig{}), "pipe.stages must not be empty"},
		{"stage without action", pipe(&PipeConfig{Stages: []StageConfig{{Args: []string{"cat"}}}}), "action is required"},
		{
			"stage with command and args",
			pipe(&PipeConfig{Stages: []StageConfig{{Action: "a", Command: "cat", Args: []string{"cat"}}}}),
			"exactly one of command and args",
		},
		{"stage with neither", pipe(&PipeConfig{Stages: []StageConfig{{Action: "a"}}}), "exactly one of command and args"},
		{"empty program", pipe(&PipeConfig{Stages: []StageConfig{{Action: "a", Args: []string{""}}}}), "must start with a program name"},
		{"each without include", pipe(&PipeConfig{Stages: one, Each: &FileFilter{}}), "pipe.each.include"},
		{"input capture", pipe(&PipeConfig{Stages: one, Input: EndpointConfig{Capture: true}}), "pipe.input cannot capture"},
		{"input append", pipe(&PipeConfig{Stages: one, Input: EndpointConfig{File: "x", Append: true}}), "pipe.input cannot append"},
		{"input file and data", pipe(&PipeConfig{Stages: one, Input: EndpointConfig{File: "x", Data: "y"}}), "mutually exclusive"},
		{"output data", pipe(&PipeConfig{Stages: one, Output: EndpointConfig{Data: "y"}}), "pipe.output cannot take data"},
		{"output file and capture", pipe(&PipeConfig{Stages: one, Output: EndpointConfig{File: "x", Capture: true}}), "mutually exclusive"},
		{"append without file", pipe(&PipeConfig{Stages: one, Output: EndpointConfig{Append: true}}), "append requires"},
		{"missing generate config", &Definition{Steps: []StepConfig{{Name: "g", Type: StepTypeGenerate}}}, "generate config is required"},
		{
			"generate without output",
			&Definition{Steps: []StepConfig{{Name: "g", Type: StepTypeGenerate, Generate: &GenerateConfig{Template: "x"}}}},
			"generate.output is required",
		},
		{
			"generate without template",
			&Definition{Steps: []StepConfig{{Name: "g", Type: StepTypeGenerate, Generate: &GenerateConfig{Output: "x"}}}},
			"generate.template is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestIsReserved(t *testing.T) {
	for _, k := range []string{KeyDir, KeyTmpDir, KeyFile} {
		if !IsReserved(k) {
			t.Errorf("%q should be reserved", k)
		}
	}
	if IsReserved("mult") {
		t.Error("ordinary keys must not be reserved")
	}
}
