package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DefaultRegistry is the registry queried when no configuration overrides it.
const DefaultRegistry = "https://registry.npmjs.org"

// Config carries everything the registry client needs. It is built once and
// passed explicitly; nothing in the core reads ambient global state.
type Config struct {
	// Registry is the base URL packages are resolved against.
	Registry string
	// WorkDir is the project directory that owns node_modules and the
	// metadata cache.
	WorkDir string
}

// FileConfig is the subset of configuration persisted in ~/.gpm/config.toml.
type FileConfig struct {
	Registry string `toml:"registry,omitempty"`
}

// ConfigDir returns the CLI config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".gpm"), nil
}

// ConfigPath returns the full path to config.toml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load builds the effective configuration for workDir. Precedence, lowest
// first: built-in defaults, ~/.gpm/config.toml, the GPM_REGISTRY environment
// variable.
func Load(workDir string) (Config, error) {
	cfg := Config{
		Registry: DefaultRegistry,
		WorkDir:  workDir,
	}

	fileCfg, err := loadFile()
	if err != nil {
		return Config{}, err
	}
	if fileCfg.Registry != "" {
		cfg.Registry = fileCfg.Registry
	}

	if registry := os.Getenv("GPM_REGISTRY"); registry != "" {
		cfg.Registry = registry
	}

	return cfg, nil
}

// loadFile reads ~/.gpm/config.toml, returning an empty config if it does
// not exist.
func loadFile() (FileConfig, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return FileConfig{}, err
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return FileConfig{}, nil
	}
	if err != nil {
		return FileConfig{}, err
	}

	var fileCfg FileConfig
	if err := toml.Unmarshal(data, &fileCfg); err != nil {
		return FileConfig{}, err
	}

	return fileCfg, nil
}

// Save writes the persistent configuration to ~/.gpm/config.toml.
func Save(fileCfg FileConfig) error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	data, err := toml.Marshal(fileCfg)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0o600)
}
