package autosettings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrProjectRootNotFound is returned when the resolved root is not a directory.
var ErrProjectRootNotFound = errors.New("project root not found")

// DefaultNestedEntryFiles lists entry files that live one level below the
// project root.
func DefaultNestedEntryFiles() []string {
	return []string{"wsgi.py"}
}

// DiscoverProjectRoot derives the project root from the file that started the
// process. The root is the entry file's directory, or its parent when the
// entry file's base name is listed in nested.
func DiscoverProjectRoot(entryFile string, nested []string) (string, error) {
	if entryFile == "" {
		return "", fmt.Errorf("%w: no entry file given", ErrProjectRootNotFound)
	}

	abs, err := filepath.Abs(entryFile)
	if err != nil {
		return "", fmt.Errorf("resolve entry file: %w", err)
	}

	root := filepath.Dir(abs)
	base := filepath.Base(abs)
	for _, name := range nested {
		if name == base {
			root = filepath.Dir(root)
			break
		}
	}
	return checkRoot(root)
}

func checkRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve project root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProjectRootNotFound, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrProjectRootNotFound, abs)
	}
	return abs, nil
}
