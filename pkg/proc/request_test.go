package proc

import (
	"strings"
	"testing"
)

func TestNewRequest_Panics(t *testing.T) {
	cat := NewSpec("cat")
	tests := []struct {
		name    string
		stages  []Spec
		actions []string
		input   Endpoint
		output  Endpoint
		want    string
	}{
		{"no stages", nil, nil, Inherit(), Inherit(), "no stages"},
		{"too few actions", []Spec{cat, cat}, []string{"copy"}, Inherit(), Inherit(), "1 action descriptions for 2 stages"},
		{"too many actions", []Spec{cat}, []string{"a", "b"}, Inherit(), Inherit(), "2 action descriptions for 1 stages"},
		{"zero spec", []Spec{{}}, []string{"copy"}, Inherit(), Inherit(), "empty argv"},
		{"write input", []Spec{cat}, []string{"copy"}, WriteFile("x"), Inherit(), "not readable"},
		{"read output", []Spec{cat}, []string{"copy"}, Inherit(), ReadFile("x"), "not writable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				if r == nil {
					t.Fatal("expected panic")
				}
				if !strings.Contains(r.(string), tt.want) {
					t.Errorf("panic %q should contain %q", r, tt.want)
				}
			}()
			NewRequest(tt.stages, tt.actions, tt.input, tt.output)
		})
	}
}

func TestNewSpec_Empty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for empty argv")
		}
	}()
	NewSpec()
}

func TestSpec_CopiesArgv(t *testing.T) {
	argv := []string{"tr", "a-z", "A-Z"}
	s := NewSpec(argv...)
	argv[0] = "rm"

	if s.Program() != "tr" {
		t.Errorf("Program() = %q, want tr", s.Program())
	}
	args := s.Args()
	args[0] = "changed"
	if s.Args()[0] != "a-z" {
		t.Error("Args() must return a copy")
	}
}

func TestRequest_Accessors(t *testing.T) {
	req := NewRequest(
		[]Spec{NewSpec("cat"), NewSpec("wc", "-l")},
		[]string{"copy", "count lines"},
		ReadFile("in.txt"),
		Pipe(),
	)
	if req.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", req.Len())
	}
	if req.Input().Kind() != FilePath || req.Input().Path() != "in.txt" {
		t.Errorf("unexpected input %s", req.Input())
	}
	if req.Output().Kind() != ExplicitPipe {
		t.Errorf("unexpected output %s", req.Output())
	}
	if got := req.Actions(); got[1] != "count lines" {
		t.Errorf("Actions()[1] = %q", got[1])
	}
	if !req.deferredWait() {
		t.Error("pipe output should defer waiting")
	}
}
