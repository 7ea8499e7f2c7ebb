package processing

import (
	"cmp"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/systemstart/procpipe/pkg/api"
)

// Discover walks root looking for definition files up to maxDepth.
// A maxDepth of -1 means unlimited. 0 means only root itself.
// Results are sorted by path depth (parents before children), then by path.
func Discover(root string, maxDepth int) ([]*api.Definition, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root path: %w", err)
	}

	paths, err := collectDefinitionPaths(absRoot, maxDepth)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(paths, func(a, b string) int {
		return cmp.Or(cmp.Compare(pathDepth(a), pathDepth(b)), strings.Compare(a, b))
	})

	return loadAll(paths)
}

func collectDefinitionPaths(absRoot string, maxDepth int) ([]string, error) {
	var (
		mu    sync.Mutex
		paths []string
	)
	// The callback runs on several goroutines.
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk error at %s: %w", path, err)
		}

		if d.IsDir() && maxDepth >= 0 {
			rel, relErr := filepath.Rel(absRoot, path)
			if relErr != nil {
				return fmt.Errorf("computing relative path for %s: %w", path, relErr)
			}
			if pathDepth(rel) > maxDepth {
				return filepath.SkipDir
			}
		}

		if !d.IsDir() && d.Name() == api.DefinitionFilename {
			mu.Lock()
			paths = append(paths, path)
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory tree: %w", err)
	}
	return paths, nil
}

func loadAll(paths []string) ([]*api.Definition, error) {
	defs := make([]*api.Definition, 0, len(paths))
	for _, p := range paths {
		def, err := api.LoadDefinition(p)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", p, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func pathDepth(p string) int {
	if p == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(p), "/") + 1
}
