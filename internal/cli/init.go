package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Galjente/gpm-nodejs/internal/installer"
	"github.com/Galjente/gpm-nodejs/internal/manifest"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new project",
	Long: `Creates a package.json manifest and an empty node_modules directory
in the current directory if they do not exist yet.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func runInit() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	logger := stderrLogger()

	manifestPath := filepath.Join(cwd, manifest.FileName)
	if _, err := os.Stat(manifestPath); err == nil {
		logger.Info("manifest already exists", "path", manifest.FileName)
	} else {
		sample := manifest.Create(filepath.Base(cwd))
		if err := manifest.Save(manifestPath, sample); err != nil {
			return fmt.Errorf("failed to create manifest: %w", err)
		}
		logger.Info("created manifest", "path", manifest.FileName)
	}

	if err := os.MkdirAll(filepath.Join(cwd, installer.ModuleDirName), 0o755); err != nil {
		return fmt.Errorf("failed to create module directory: %w", err)
	}

	return nil
}
