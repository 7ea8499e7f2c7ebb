package proc

import (
	"os"
	"testing"
)

func TestSetupStdio_Idempotent(t *testing.T) {
	t.Cleanup(func() { _ = TeardownStdio() })

	if err := SetupStdio(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, _ := inheritedStdio()
	if err := SetupStdio(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := inheritedStdio()

	if first != second {
		t.Error("streams should be probed once and cached")
	}
	if first.in == nil || first.out == nil || first.err == nil {
		t.Errorf("every stream must be bound: %+v", first)
	}
}

func TestTeardownStdio_Reprobes(t *testing.T) {
	if err := SetupStdio(); err != nil {
		t.Fatal(err)
	}
	if err := TeardownStdio(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdioState.ready {
		t.Error("teardown should reset the cache")
	}
	if err := SetupStdio(); err != nil {
		t.Fatal(err)
	}
	_ = TeardownStdio()
}

func TestUsable(t *testing.T) {
	if usable(nil) {
		t.Error("nil file is not usable")
	}

	f, err := os.CreateTemp(t.TempDir(), "usable")
	if err != nil {
		t.Fatal(err)
	}
	if !usable(f) {
		t.Error("open file should be usable")
	}
	_ = f.Close()
	if usable(f) {
		t.Error("closed file should not be usable")
	}
}

func TestInheritedStdio_FallsBackToNullDevice(t *testing.T) {
	skipWithout(t, "echo")

	closed, err := os.CreateTemp(t.TempDir(), "stdout")
	if err != nil {
		t.Fatal(err)
	}
	if err := closed.Close(); err != nil {
		t.Fatal(err)
	}

	saved := os.Stdout
	os.Stdout = closed
	t.Cleanup(func() {
		os.Stdout = saved
		_ = TeardownStdio()
	})
	if err := TeardownStdio(); err != nil {
		t.Fatal(err)
	}

	std, err := inheritedStdio()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if std.out.Name() != os.DevNull {
		t.Errorf("stdout bound to %q, want %q", std.out.Name(), os.DevNull)
	}
	if std.err != os.Stderr {
		t.Error("usable streams must be kept")
	}

	res, err := Run(Single(NewSpec("echo", "discarded"), "print", Inherit(), Inherit()), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success() {
		t.Errorf("ExitCodes = %v", res.ExitCodes)
	}
}
