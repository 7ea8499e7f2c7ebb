package api

const (
	DefinitionFilename = ".procpipe.yaml"

	StepTypePipe     = "pipe"
	StepTypeGenerate = "generate"
)

// Definition is the .procpipe.yaml configuration format.
type Definition struct {
	Context map[string]any    `yaml:"context"`
	Env     map[string]string `yaml:"env"`
	TempDir bool              `yaml:"tempDir"`
	Steps   []StepConfig      `yaml:"steps"`

	// Set by the loader, not from YAML.
	Dir      string `yaml:"-"`
	FilePath string `yaml:"-"`
}

// StepConfig defines a single step within a definition.
type StepConfig struct {
	Name     string          `yaml:"name"`
	Type     string          `yaml:"type"`
	Pipe     *PipeConfig     `yaml:"pipe,omitempty"`
	Generate *GenerateConfig `yaml:"generate,omitempty"`
}

// FileFilter defines include/exclude glob patterns.
type FileFilter struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// PipeConfig configures a process pipeline. When Each is set the pipeline
// runs once per matching file, with the file available as {{ .file }}.
type PipeConfig struct {
	Each   *FileFilter    `yaml:"each,omitempty"`
	Stages []StageConfig  `yaml:"stages"`
	Input  EndpointConfig `yaml:"input"`
	Output EndpointConfig `yaml:"output"`
}

// StageConfig is one executable in a pipeline. Exactly one of Command
// (split shell-style) and Args must be set.
type StageConfig struct {
	Action  string   `yaml:"action"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// EndpointConfig selects what a pipeline end is bound to. All fields empty
// means the inherited standard stream.
type EndpointConfig struct {
	File    string `yaml:"file"`
	Append  bool   `yaml:"append"`
	Data    string `yaml:"data"`    // input only: written through a pipe
	Capture bool   `yaml:"capture"` // output only: read through a pipe
}

// GenerateConfig configures the generate step.
type GenerateConfig struct {
	Output   string `yaml:"output"`
	Template string `yaml:"template"`
}
