package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Galjente/gpm-nodejs/internal/manifest"
)

// findProjectRoot walks up from the current directory until it finds a
// package.json, returning the directory that contains it.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, manifest.FileName)); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found in this or any parent directory", manifest.FileName)
		}
		dir = parent
	}
}
