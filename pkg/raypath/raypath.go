package raypath

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvVar names the environment variable holding the support search list.
const EnvVar = "RAYPATH"

// Dirs returns the directories listed in RAYPATH, in order. Empty entries
// are dropped.
func Dirs() []string {
	var dirs []string
	for _, d := range filepath.SplitList(os.Getenv(EnvVar)) {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// Find returns the first existing dir/name for dir in RAYPATH. Absolute
// names are returned unchanged if they exist.
func Find(name string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("support file %s: %w", name, err)
		}
		return name, nil
	}

	dirs := Dirs()
	if len(dirs) == 0 {
		return "", fmt.Errorf("%s is not set, unable to find %s", EnvVar, name)
	}
	for _, d := range dirs {
		p := filepath.Join(d, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s not found on %s (%s)", name, EnvVar, os.Getenv(EnvVar))
}
