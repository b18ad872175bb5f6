package installer

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/Galjente/gpm-nodejs/internal/config"
	"github.com/Galjente/gpm-nodejs/internal/manifest"
	"github.com/Galjente/gpm-nodejs/internal/registry"
)

// fakeRegistry serves metadata and tarballs for fabricated packages.
type fakeRegistry struct {
	t        *testing.T
	server   *httptest.Server
	packages map[string]*registry.Package
	tarballs map[string][]byte

	tarballRequests int
}

func newFakeRegistry(t *testing.T) *fakeRegistry {
	t.Helper()

	f := &fakeRegistry{
		t:        t,
		packages: make(map[string]*registry.Package),
		tarballs: make(map[string][]byte),
	}

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")

		if data, ok := f.tarballs[path]; ok {
			f.tarballRequests++
			w.Write(data)
			return
		}

		pkg, ok := f.packages[path]
		if !ok {
			http.Error(w, "package not found", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(pkg)
	}))
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakeRegistry) addVersion(name, versionStr string, deps map[string]string, bin registry.BinFiles, files map[string]string) {
	f.t.Helper()

	all := map[string]string{
		"package.json": fmt.Sprintf(`{"name":%q,"version":%q}`, name, versionStr),
	}
	for path, content := range files {
		all[path] = content
	}

	var buf bytes.Buffer
	gzWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzWriter)

	names := make([]string, 0, len(all))
	for n := range all {
		names = append(names, n)
	}
	sort.Strings(names)

	var fileCount int
	var unpackedSize int64
	for _, n := range names {
		content := all[n]
		header := &tar.Header{Name: "package/" + n, Mode: 0o644, Size: int64(len(content))}
		if err := tarWriter.WriteHeader(header); err != nil {
			f.t.Fatalf("Failed to write tar header: %v", err)
		}
		if _, err := tarWriter.Write([]byte(content)); err != nil {
			f.t.Fatalf("Failed to write tar content: %v", err)
		}
		fileCount++
		unpackedSize += int64(len(content))
	}
	tarWriter.Close()
	gzWriter.Close()

	data := buf.Bytes()
	tarballPath := fmt.Sprintf("%s/-/%s-%s.tgz", name, name, versionStr)
	f.tarballs[tarballPath] = data

	rec := registry.VersionRecord{
		Name:         name,
		Version:      versionStr,
		Dependencies: deps,
		Bin:          bin,
		Dist: registry.Dist{
			Tarball:      f.server.URL + "/" + tarballPath,
			Shasum:       fmt.Sprintf("%x", sha1.Sum(data)),
			FileCount:    fileCount,
			UnpackedSize: unpackedSize,
		},
	}

	pkg, ok := f.packages[name]
	if !ok {
		pkg = &registry.Package{
			Name:     name,
			DistTags: map[string]string{},
			Versions: make(map[string]registry.VersionRecord),
		}
		f.packages[name] = pkg
	}
	pkg.Versions[versionStr] = rec
	pkg.DistTags["latest"] = versionStr
}

// newInstaller builds an installer with a fresh client, so every run starts
// with a cold metadata cache just like a real process invocation.
func newInstaller(t *testing.T, reg *fakeRegistry, workDir string) *Installer {
	t.Helper()

	client, err := registry.New(config.Config{Registry: reg.server.URL, WorkDir: workDir}, log.New(io.Discard))
	if err != nil {
		t.Fatalf("registry.New failed: %v", err)
	}

	return New(client, workDir, log.New(io.Discard))
}

func installedVersion(t *testing.T, workDir, name string) string {
	t.Helper()

	pkg, err := manifest.LoadDir(filepath.Join(workDir, ModuleDirName, name))
	if err != nil {
		t.Fatalf("reading installed descriptor for %s: %v", name, err)
	}
	return pkg.Version
}

func TestInstallAllTransitive(t *testing.T) {
	reg := newFakeRegistry(t)
	reg.addVersion("c-lib", "2.0.1", nil, registry.BinFiles{}, map[string]string{"c.js": "c"})
	reg.addVersion("b-lib", "1.0.0", map[string]string{"c-lib": "~2.0.0"}, registry.BinFiles{}, map[string]string{"b.js": "b"})

	workDir := t.TempDir()
	inst := newInstaller(t, reg, workDir)

	err := inst.InstallAll(context.Background(), map[string]string{"b-lib": "^1.0.0"})
	if err != nil {
		t.Fatalf("InstallAll failed: %v", err)
	}

	if got := installedVersion(t, workDir, "b-lib"); got != "1.0.0" {
		t.Errorf("b-lib version = %s, want 1.0.0", got)
	}
	if got := installedVersion(t, workDir, "c-lib"); got != "2.0.1" {
		t.Errorf("c-lib version = %s, want 2.0.1", got)
	}
}

func TestInstallAllEmptyRequirements(t *testing.T) {
	reg := newFakeRegistry(t)
	workDir := t.TempDir()
	inst := newInstaller(t, reg, workDir)

	if err := inst.InstallAll(context.Background(), map[string]string{}); err != nil {
		t.Fatalf("InstallAll failed: %v", err)
	}

	if _, err := os.Stat(inst.ModuleRoot()); !os.IsNotExist(err) {
		t.Error("module directory created for empty requirements")
	}
}

func TestInstallAllIdempotent(t *testing.T) {
	reg := newFakeRegistry(t)
	reg.addVersion("c-lib", "2.0.1", nil, registry.BinFiles{}, map[string]string{"c.js": "c"})
	reg.addVersion("b-lib", "1.0.0", map[string]string{"c-lib": "~2.0.0"}, registry.BinFiles{}, map[string]string{"b.js": "b"})

	workDir := t.TempDir()
	reqs := map[string]string{"b-lib": "^1.0.0"}

	if err := newInstaller(t, reg, workDir).InstallAll(context.Background(), reqs); err != nil {
		t.Fatalf("first InstallAll failed: %v", err)
	}
	downloadsAfterFirst := reg.tarballRequests

	// Second run with a fresh process-equivalent installer: everything
	// already satisfies its range and passes validity, so no archives
	// are downloaded.
	if err := newInstaller(t, reg, workDir).InstallAll(context.Background(), reqs); err != nil {
		t.Fatalf("second InstallAll failed: %v", err)
	}

	if reg.tarballRequests != downloadsAfterFirst {
		t.Errorf("second run downloaded %d archives, want 0", reg.tarballRequests-downloadsAfterFirst)
	}
}

func TestInstallAllRepairsCorruption(t *testing.T) {
	reg := newFakeRegistry(t)
	reg.addVersion("b-lib", "1.0.0", nil, registry.BinFiles{}, map[string]string{"b.js": "exports.b = 1\n"})

	workDir := t.TempDir()
	reqs := map[string]string{"b-lib": "^1.0.0"}

	if err := newInstaller(t, reg, workDir).InstallAll(context.Background(), reqs); err != nil {
		t.Fatalf("first InstallAll failed: %v", err)
	}

	// Corrupt the installed module by deleting one file
	corrupted := filepath.Join(workDir, ModuleDirName, "b-lib", "b.js")
	if err := os.Remove(corrupted); err != nil {
		t.Fatalf("Failed to remove file: %v", err)
	}

	if err := newInstaller(t, reg, workDir).InstallAll(context.Background(), reqs); err != nil {
		t.Fatalf("second InstallAll failed: %v", err)
	}

	if _, err := os.Stat(corrupted); err != nil {
		t.Errorf("deleted file not restored by repair: %v", err)
	}
}

func TestInstallAllUpgradesOnRangeMismatch(t *testing.T) {
	reg := newFakeRegistry(t)
	reg.addVersion("x-lib", "1.0.0", nil, registry.BinFiles{}, map[string]string{"x.js": "v1"})
	reg.addVersion("x-lib", "1.5.0", nil, registry.BinFiles{}, map[string]string{"x.js": "v1.5"})

	workDir := t.TempDir()

	if err := newInstaller(t, reg, workDir).InstallAll(context.Background(), map[string]string{"x-lib": "1.0.0"}); err != nil {
		t.Fatalf("first InstallAll failed: %v", err)
	}
	if got := installedVersion(t, workDir, "x-lib"); got != "1.0.0" {
		t.Fatalf("x-lib version = %s, want 1.0.0", got)
	}

	// The manifest now demands a higher range: installed 1.0.0 no longer
	// satisfies it, so the module is upgraded in place.
	if err := newInstaller(t, reg, workDir).InstallAll(context.Background(), map[string]string{"x-lib": "^1.5.0"}); err != nil {
		t.Fatalf("second InstallAll failed: %v", err)
	}
	if got := installedVersion(t, workDir, "x-lib"); got != "1.5.0" {
		t.Errorf("x-lib version = %s, want 1.5.0 after upgrade", got)
	}
}

func TestInstallAllTerminatesOnCycle(t *testing.T) {
	reg := newFakeRegistry(t)
	reg.addVersion("a-lib", "1.0.0", map[string]string{"b-lib": "^1.0.0"}, registry.BinFiles{}, nil)
	reg.addVersion("b-lib", "1.0.0", map[string]string{"a-lib": "^1.0.0"}, registry.BinFiles{}, nil)

	workDir := t.TempDir()
	inst := newInstaller(t, reg, workDir)

	err := inst.InstallAll(context.Background(), map[string]string{"a-lib": "^1.0.0"})
	if err != nil {
		t.Fatalf("InstallAll failed: %v", err)
	}

	if got := installedVersion(t, workDir, "a-lib"); got != "1.0.0" {
		t.Errorf("a-lib version = %s, want 1.0.0", got)
	}
	if got := installedVersion(t, workDir, "b-lib"); got != "1.0.0" {
		t.Errorf("b-lib version = %s, want 1.0.0", got)
	}
	if reg.tarballRequests != 2 {
		t.Errorf("tarball downloads = %d, want 2 (each package exactly once)", reg.tarballRequests)
	}
}

func TestInstallAllFirstLevelWins(t *testing.T) {
	reg := newFakeRegistry(t)
	reg.addVersion("x-lib", "1.5.0", nil, registry.BinFiles{}, nil)
	reg.addVersion("x-lib", "2.0.0", nil, registry.BinFiles{}, nil)
	// y-lib asks for a different x-lib range than the root does
	reg.addVersion("y-lib", "1.0.0", map[string]string{"x-lib": "^2.0.0"}, registry.BinFiles{}, nil)

	workDir := t.TempDir()
	inst := newInstaller(t, reg, workDir)

	err := inst.InstallAll(context.Background(), map[string]string{
		"x-lib": "^1.0.0",
		"y-lib": "^1.0.0",
	})
	if err != nil {
		t.Fatalf("InstallAll failed: %v", err)
	}

	// The first-level requirement wins; the deeper ^2.0.0 is ignored
	if got := installedVersion(t, workDir, "x-lib"); got != "1.5.0" {
		t.Errorf("x-lib version = %s, want 1.5.0", got)
	}
}

func TestInstallAllAliasedDependency(t *testing.T) {
	reg := newFakeRegistry(t)
	reg.addVersion("real-name", "2.1.0", nil, registry.BinFiles{}, nil)

	workDir := t.TempDir()
	inst := newInstaller(t, reg, workDir)

	// The key names the install directory; the range string aliases another package
	err := inst.InstallAll(context.Background(), map[string]string{
		"my-alias": "real-name@^2.0.0",
	})
	if err != nil {
		t.Fatalf("InstallAll failed: %v", err)
	}

	pkg, err := manifest.LoadDir(filepath.Join(workDir, ModuleDirName, "my-alias"))
	if err != nil {
		t.Fatalf("aliased module not installed: %v", err)
	}
	if pkg.Name != "real-name" || pkg.Version != "2.1.0" {
		t.Errorf("installed %s@%s, want real-name@2.1.0", pkg.Name, pkg.Version)
	}
}

func TestInstallAllBinLinks(t *testing.T) {
	reg := newFakeRegistry(t)
	reg.addVersion("tool", "1.0.0", nil,
		registry.BinFiles{Commands: map[string]string{"foo": "./cli.js"}},
		map[string]string{"cli.js": "#!/usr/bin/env node\n"})

	workDir := t.TempDir()
	inst := newInstaller(t, reg, workDir)

	if err := inst.InstallAll(context.Background(), map[string]string{"tool": "^1.0.0"}); err != nil {
		t.Fatalf("InstallAll failed: %v", err)
	}

	linkPath := filepath.Join(workDir, ModuleDirName, BinDirName, "foo")
	resolved, err := filepath.EvalSymlinks(linkPath)
	if err != nil {
		t.Fatalf("bin link missing or broken: %v", err)
	}
	wantTarget, _ := filepath.EvalSymlinks(filepath.Join(workDir, ModuleDirName, "tool", "cli.js"))
	if resolved != wantTarget {
		t.Errorf("bin link resolves to %q, want %q", resolved, wantTarget)
	}

	entries, err := os.ReadDir(filepath.Join(workDir, ModuleDirName, BinDirName))
	if err != nil {
		t.Fatalf("Failed to read bin dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("bin dir has %d entries, want exactly 1", len(entries))
	}
}

func TestInstallAllResolutionError(t *testing.T) {
	reg := newFakeRegistry(t)
	reg.addVersion("x-lib", "1.0.0", nil, registry.BinFiles{}, nil)

	workDir := t.TempDir()
	inst := newInstaller(t, reg, workDir)

	err := inst.InstallAll(context.Background(), map[string]string{"x-lib": "^9.0.0"})
	if !errors.Is(err, registry.ErrResolution) {
		t.Fatalf("error = %v, want ErrResolution", err)
	}
}

func TestInstallAllUnknownPackage(t *testing.T) {
	reg := newFakeRegistry(t)

	workDir := t.TempDir()
	inst := newInstaller(t, reg, workDir)

	err := inst.InstallAll(context.Background(), map[string]string{"ghost": "^1.0.0"})
	if !errors.Is(err, registry.ErrRegistry) {
		t.Fatalf("error = %v, want ErrRegistry", err)
	}
}
