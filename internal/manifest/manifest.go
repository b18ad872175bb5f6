package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/Galjente/gpm-nodejs/internal/version"
)

// FileName is the descriptor file at a project root and inside every
// installed module directory.
const FileName = "package.json"

// PackageJSON represents a package descriptor: the project manifest at the
// root, and the installed-version descriptor inside each module directory.
type PackageJSON struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Description     string            `json:"description,omitempty"`
	Main            string            `json:"main,omitempty"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
}

var (
	ErrInvalidManifest = errors.New("invalid manifest")
	ErrInvalidName     = errors.New("invalid package name")
	ErrInvalidVersion  = errors.New("invalid version")
)

// nameRegex matches valid package names (with or without scope)
var nameRegex = regexp.MustCompile(`^(@[a-z0-9][a-z0-9\-_.]*\/)?[a-z0-9][a-z0-9\-_.]*$`)

// Load reads a package descriptor from path. Installed third-party
// descriptors are accepted as-is; call Validate separately when strictness
// is wanted.
func Load(path string) (*PackageJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var pkg PackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse manifest JSON: %w", err)
	}

	return &pkg, nil
}

// LoadDir reads the descriptor inside a module or project directory.
func LoadDir(dir string) (*PackageJSON, error) {
	return Load(filepath.Join(dir, FileName))
}

// Save writes the descriptor to path, validating it first.
func Save(path string, pkg *PackageJSON) error {
	if err := pkg.Validate(); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}

	data, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks the descriptor's own identity fields.
func (p *PackageJSON) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidManifest)
	}

	if !nameRegex.MatchString(p.Name) {
		return fmt.Errorf("%w: name must match pattern %s", ErrInvalidName, nameRegex.String())
	}

	if p.Version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidManifest)
	}

	if !version.IsValidVersion(p.Version) {
		return fmt.Errorf("%w: version must be semantic version (x.y.z)", ErrInvalidVersion)
	}

	return nil
}

// Create builds a fresh project manifest for initialization.
func Create(name string) *PackageJSON {
	return &PackageJSON{
		Name:            name,
		Version:         "1.0.0",
		Description:     "",
		Dependencies:    make(map[string]string),
		DevDependencies: make(map[string]string),
	}
}
