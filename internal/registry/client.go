package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Galjente/gpm-nodejs/internal/archive"
	"github.com/Galjente/gpm-nodejs/internal/config"
	"github.com/Galjente/gpm-nodejs/internal/version"
)

// CacheDirName is the per-project metadata cache directory, wiped at client
// construction so every run starts cold.
const CacheDirName = ".gpm-cache"

// Client talks to a package registry: metadata lookups with an on-disk
// cache, verified archive downloads, version-range resolution and bin
// symlink materialization.
type Client struct {
	registryURL string
	cacheDir    string
	httpClient  *http.Client
	logger      *log.Logger
}

// New creates a registry client from explicit configuration. The metadata
// cache directory is wiped and recreated, so cache entries never outlive a
// single run.
func New(cfg config.Config, logger *log.Logger) (*Client, error) {
	cacheDir := filepath.Join(cfg.WorkDir, CacheDirName)

	if err := os.RemoveAll(cacheDir); err != nil {
		return nil, NewError(ErrFilesystem, fmt.Sprintf("failed to clear cache directory: %v", err))
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, NewError(ErrFilesystem, fmt.Sprintf("failed to create cache directory: %v", err))
	}

	return &Client{
		registryURL: strings.TrimRight(cfg.Registry, "/"),
		cacheDir:    cacheDir,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}, nil
}

// cachePath returns the cache file for a package name.
func (c *Client) cachePath(name string) string {
	return filepath.Join(c.cacheDir, strings.ReplaceAll(name, "/", "_")+".json")
}

// GetPackage returns the metadata document for name, from cache when an
// entry exists, otherwise from the registry. A successful fetch is written
// to the cache verbatim before returning.
func (c *Client) GetPackage(ctx context.Context, name string) (*Package, error) {
	cachePath := c.cachePath(name)

	if data, err := os.ReadFile(cachePath); err == nil {
		var pkg Package
		if err := json.Unmarshal(data, &pkg); err == nil {
			c.logger.Debug("metadata cache hit", "package", name)
			return &pkg, nil
		}
		// Unreadable entry: fall through to a fresh fetch
	}

	url := c.registryURL + "/" + name
	c.logger.Debug("fetching metadata", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewError(ErrRegistry, fmt.Sprintf("%s: %v", name, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewError(ErrRegistry, fmt.Sprintf("%s: %s", name, resp.Status))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(ErrRegistry, fmt.Sprintf("%s: reading response: %v", name, err))
	}

	var pkg Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, NewError(ErrRegistry, fmt.Sprintf("%s: malformed metadata: %v", name, err))
	}

	if err := os.WriteFile(cachePath, data, 0o644); err != nil {
		return nil, NewError(ErrFilesystem, fmt.Sprintf("failed to write cache entry for %s: %v", name, err))
	}

	return &pkg, nil
}

// DownloadModule fetches a version's archive, verifies its digest and
// unpacks it into destDir. On a digest mismatch the partial download is
// deleted and an integrity error returned; no retry is attempted here.
func (c *Client) DownloadModule(ctx context.Context, rec *VersionRecord, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return NewError(ErrFilesystem, fmt.Sprintf("failed to create module directory: %v", err))
	}

	c.logger.Debug("downloading archive", "package", rec.Name, "version", rec.Version, "url", rec.Dist.Tarball)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rec.Dist.Tarball, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return NewError(ErrRegistry, fmt.Sprintf("%s@%s: %v", rec.Name, rec.Version, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return NewError(ErrRegistry, fmt.Sprintf("%s@%s: %s", rec.Name, rec.Version, resp.Status))
	}

	tempFile, err := os.CreateTemp("", fmt.Sprintf("gpm-%s-%s-*.tgz", sanitizeFileName(rec.Name), rec.Version))
	if err != nil {
		return NewError(ErrFilesystem, fmt.Sprintf("failed to create temp file: %v", err))
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	_, err = io.Copy(tempFile, resp.Body)
	tempFile.Close()
	if err != nil {
		return NewError(ErrFilesystem, fmt.Sprintf("failed to write archive: %v", err))
	}

	ok, err := archive.VerifyFile(tempPath, rec.Dist.Shasum)
	if err != nil {
		return NewError(ErrFilesystem, fmt.Sprintf("failed to hash archive: %v", err))
	}
	if !ok {
		return NewError(ErrIntegrity, fmt.Sprintf("%s@%s: digest does not match %s", rec.Name, rec.Version, rec.Dist.Shasum))
	}

	if err := archive.Unpack(tempPath, destDir); err != nil {
		return NewError(ErrExtraction, fmt.Sprintf("%s@%s: %v", rec.Name, rec.Version, err))
	}

	return nil
}

// RedownloadModule removes destDir and installs the version fresh. Used for
// both upgrades and corruption repair.
func (c *Client) RedownloadModule(ctx context.Context, rec *VersionRecord, destDir string) error {
	if err := os.RemoveAll(destDir); err != nil {
		return NewError(ErrFilesystem, fmt.Sprintf("failed to remove module directory: %v", err))
	}

	return c.DownloadModule(ctx, rec, destDir)
}

// IsModuleValid compares a module directory's census against the archive
// descriptor's declared file count and unpacked size. A structural check,
// not a cryptographic one: a tree that happens to match both numbers passes.
func (c *Client) IsModuleValid(rec *VersionRecord, destDir string) bool {
	census, err := archive.Census(destDir)
	if err != nil {
		return false
	}

	return census.FileCount == rec.Dist.FileCount && census.TotalSize == rec.Dist.UnpackedSize
}

// ClosestVersion selects the highest published version satisfying rng,
// after stripping any "name@" alias prefix from it.
func (c *Client) ClosestVersion(meta *Package, rng string) (*VersionRecord, error) {
	rng = SanitizeVersion(rng)

	published := make([]string, 0, len(meta.Versions))
	for v := range meta.Versions {
		published = append(published, v)
	}

	best, err := version.MaxSatisfying(published, rng)
	if err != nil {
		return nil, NewError(ErrResolution, fmt.Sprintf("%s: no published version satisfies %q", meta.Name, rng))
	}

	rec := meta.Versions[best]
	return &rec, nil
}

// VersionSatisfies reports whether versionStr satisfies rng. Unparseable
// input counts as not satisfying.
func (c *Client) VersionSatisfies(versionStr, rng string) bool {
	ok, err := version.Satisfies(versionStr, SanitizeVersion(rng))
	if err != nil {
		return false
	}
	return ok
}

// SymlinkBinFiles creates one relative symlink per declared executable in
// binDir, pointing at the executable inside moduleDir. No-op when the
// version declares none.
func (c *Client) SymlinkBinFiles(rec *VersionRecord, moduleDir, binDir string) error {
	if rec.Bin.IsEmpty() {
		return nil
	}

	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return NewError(ErrFilesystem, fmt.Sprintf("failed to create bin directory: %v", err))
	}

	for command, relPath := range rec.Bin.Links(rec.Name) {
		target, err := filepath.Rel(binDir, filepath.Join(moduleDir, relPath))
		if err != nil {
			return NewError(ErrFilesystem, fmt.Sprintf("failed to resolve bin target for %s: %v", command, err))
		}

		linkPath := filepath.Join(binDir, command)

		// Replace any stale link from a previous version
		if err := os.Remove(linkPath); err != nil && !os.IsNotExist(err) {
			return NewError(ErrFilesystem, fmt.Sprintf("failed to remove existing bin link %s: %v", command, err))
		}

		if err := os.Symlink(target, linkPath); err != nil {
			return NewError(ErrFilesystem, fmt.Sprintf("failed to create bin link %s: %v", command, err))
		}

		c.logger.Debug("linked executable", "command", command, "target", target)
	}

	return nil
}

// sanitizeFileName makes a package name safe for use in a temp file name.
func sanitizeFileName(name string) string {
	return strings.ReplaceAll(name, "/", "_")
}
