package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/Galjente/gpm-nodejs/internal/manifest"
	"github.com/Galjente/gpm-nodejs/internal/registry"
)

const (
	// ModuleDirName is the flat directory holding every installed package.
	ModuleDirName = "node_modules"
	// BinDirName holds executable symlinks, inside the module directory.
	BinDirName = ".bin"
)

// Installer drives the breadth-first installation loop over the dependency
// graph. It owns the module tree and the processed-names ledger for the
// duration of a run; all fetch/verify/extract work goes through the client.
type Installer struct {
	client     *registry.Client
	moduleRoot string
	binDir     string
	logger     *log.Logger
}

// New creates an installer rooted at workDir/node_modules.
func New(client *registry.Client, workDir string, logger *log.Logger) *Installer {
	moduleRoot := filepath.Join(workDir, ModuleDirName)

	return &Installer{
		client:     client,
		moduleRoot: moduleRoot,
		binDir:     filepath.Join(moduleRoot, BinDirName),
		logger:     logger,
	}
}

// ModuleRoot returns the directory packages install into.
func (i *Installer) ModuleRoot() string {
	return i.moduleRoot
}

// InstallAll materializes the full transitive dependency graph of
// rootRequirements into the module directory, level by level.
//
// Each package name is handled at most once per run: the ledger skips names
// already processed at an earlier level, so a deeper dependency re-declaring
// a name with a different range is ignored (first requirement wins) and
// cycles terminate. Names within a level are processed in sorted order; no
// ordering is promised between unrelated packages.
func (i *Installer) InstallAll(ctx context.Context, rootRequirements map[string]string) error {
	processed := make(map[string]bool)

	level := rootRequirements
	for len(level) > 0 {
		if err := os.MkdirAll(i.moduleRoot, 0o755); err != nil {
			return registry.NewError(registry.ErrFilesystem, fmt.Sprintf("failed to create module directory: %v", err))
		}

		next := make(map[string]string)

		for _, name := range sortedKeys(level) {
			if processed[name] {
				continue
			}

			if err := i.installOne(ctx, name, level[name], next); err != nil {
				return err
			}

			processed[name] = true
		}

		level = next
	}

	return nil
}

// installOne resolves and materializes a single dependency, merging the
// selected version's own requirements into next.
func (i *Installer) installOne(ctx context.Context, name, rng string, next map[string]string) error {
	// The range may alias a different package than its map key
	packageName := name
	if registry.ContainsPackageName(rng) {
		packageName = registry.ExtractPackageName(rng)
	}

	meta, err := i.client.GetPackage(ctx, packageName)
	if err != nil {
		return err
	}

	moduleDir := filepath.Join(i.moduleRoot, name)

	fresh := true
	if installed, err := manifest.LoadDir(moduleDir); err == nil {
		fresh = false

		if i.client.VersionSatisfies(installed.Version, rng) {
			// An installed version missing from the metadata cannot be
			// validated or repaired; fall through to the upgrade path.
			if rec, ok := meta.Versions[installed.Version]; ok {
				return i.keepInstalled(ctx, name, &rec, moduleDir, next)
			}
		}
	}

	rec, err := i.client.ClosestVersion(meta, rng)
	if err != nil {
		return err
	}

	if fresh {
		if err := i.client.DownloadModule(ctx, rec, moduleDir); err != nil {
			return err
		}
		i.logger.Info("installed", "package", name, "version", rec.Version)
	} else {
		if err := i.client.RedownloadModule(ctx, rec, moduleDir); err != nil {
			return err
		}
		i.logger.Info("upgraded", "package", name, "version", rec.Version)
	}

	if err := i.client.SymlinkBinFiles(rec, moduleDir, i.binDir); err != nil {
		return err
	}

	mergeRequirements(next, rec.Dependencies)
	return nil
}

// keepInstalled handles a module whose installed version already satisfies
// the requested range: validate it, repair in place when the census check
// fails, and refresh its bin links either way.
func (i *Installer) keepInstalled(ctx context.Context, name string, rec *registry.VersionRecord, moduleDir string, next map[string]string) error {
	if i.client.IsModuleValid(rec, moduleDir) {
		i.logger.Info("up to date", "package", name, "version", rec.Version)
	} else {
		i.logger.Warn("module corrupted, reinstalling", "package", name, "version", rec.Version)
		if err := i.client.RedownloadModule(ctx, rec, moduleDir); err != nil {
			return err
		}
		i.logger.Info("repaired", "package", name, "version", rec.Version)
	}

	if err := i.client.SymlinkBinFiles(rec, moduleDir, i.binDir); err != nil {
		return err
	}

	mergeRequirements(next, rec.Dependencies)
	return nil
}

// mergeRequirements folds src into dst, last writer wins.
func mergeRequirements(dst, src map[string]string) {
	for name, rng := range src {
		dst[name] = rng
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
