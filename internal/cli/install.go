package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Galjente/gpm-nodejs/internal/config"
	"github.com/Galjente/gpm-nodejs/internal/installer"
	"github.com/Galjente/gpm-nodejs/internal/manifest"
	"github.com/Galjente/gpm-nodejs/internal/registry"
)

var productionOnly bool

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install all dependencies from package.json",
	Long: `Reads the project package.json and materializes every declared
dependency, and each dependency's own dependencies, into node_modules.

Already-installed modules that satisfy their range are validated and kept;
corrupted modules are reinstalled; modules whose installed version no longer
satisfies the manifest are upgraded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInstall(cmd.Context())
	},
}

func init() {
	installCmd.Flags().BoolVar(&productionOnly, "production", false, "skip devDependencies")
}

// runInstall implements the install command logic
func runInstall(ctx context.Context) error {
	logger := stderrLogger()

	projectRoot, err := findProjectRoot()
	if err != nil {
		return fmt.Errorf("failed to find project root: %w", err)
	}
	logger.Debug("project root", "path", projectRoot)

	pkg, err := manifest.LoadDir(projectRoot)
	if err != nil {
		return fmt.Errorf("failed to load project manifest: %w", err)
	}

	// Dev dependencies of the project itself join the first level;
	// transitive dev dependencies are never followed.
	requirements := make(map[string]string)
	for name, rng := range pkg.Dependencies {
		requirements[name] = rng
	}
	if !productionOnly {
		for name, rng := range pkg.DevDependencies {
			requirements[name] = rng
		}
	}

	if len(requirements) == 0 {
		logger.Info("no dependencies to install")
		return nil
	}

	cfg, err := config.Load(projectRoot)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Debug("using registry", "url", cfg.Registry)

	client, err := registry.New(cfg, logger)
	if err != nil {
		return err
	}

	inst := installer.New(client, projectRoot, logger)
	return inst.InstallAll(ctx, requirements)
}
