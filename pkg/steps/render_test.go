package steps

import (
	"path/filepath"
	"testing"
)

func TestRender(t *testing.T) {
	lib := t.TempDir()
	writeTestFile(t, lib, "falsecolor.cal", "")
	t.Setenv("RAYPATH", lib)

	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain text untouched", "pcomb -e '{x}'", "pcomb -e '{x}'"},
		{"context value", "{{ .mult }}", "179"},
		{"sprig", `{{ "a b" | squote }}`, "'a b'"},
		{"raypath", `{{ raypath "falsecolor.cal" }}`, filepath.Join(lib, "falsecolor.cal")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := render("t", tt.text, map[string]any{"mult": 179})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRender_RaypathMissing(t *testing.T) {
	t.Setenv("RAYPATH", t.TempDir())
	if _, err := render("t", `{{ raypath "nope.cal" }}`, nil); err == nil {
		t.Fatal("expected error for unresolvable support file")
	}
}
