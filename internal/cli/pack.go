package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Galjente/gpm-nodejs/internal/archive"
	"github.com/Galjente/gpm-nodejs/internal/installer"
	"github.com/Galjente/gpm-nodejs/internal/manifest"
	"github.com/Galjente/gpm-nodejs/internal/registry"
)

var packOutput string

// packCmd represents the pack command
var packCmd = &cobra.Command{
	Use:   "pack [patterns...]",
	Short: "Create a publishable package archive",
	Long: `Bundles the files matching the given glob patterns (default: all
files) into a registry-format tarball and prints the dist descriptor a
registry would publish for it: shasum, file count and unpacked size.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPack(args)
	},
}

func init() {
	packCmd.Flags().StringVarP(&packOutput, "output", "o", "", "archive output path (default <name>-<version>.tgz)")
}

func runPack(patterns []string) error {
	logger := stderrLogger()

	pkg, err := manifest.Load(manifest.FileName)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}
	if err := pkg.Validate(); err != nil {
		return err
	}

	if len(patterns) == 0 {
		patterns = []string{"**/*"}
	}

	outputPath := packOutput
	if outputPath == "" {
		outputPath = fmt.Sprintf("%s-%s.tgz", pkg.Name, pkg.Version)
	}

	// Never bundle installed modules or the metadata cache
	info, err := archive.Pack(patterns, outputPath, installer.ModuleDirName, registry.CacheDirName)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	logger.Info("packed archive",
		"path", info.Path,
		"shasum", info.Shasum,
		"fileCount", info.FileCount,
		"unpackedSize", info.UnpackedSize,
		"archiveSize", info.SizeBytes,
	)

	return nil
}
