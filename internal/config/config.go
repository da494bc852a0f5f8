package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"sarchain/internal/services"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the filesystem locations a run reads from and writes to.
type Paths struct {
	OutputDir    string `toml:"output_dir"`
	DEMFile      string `toml:"dem_file"`
	GraphFile    string `toml:"graph_file"`
	DiscoveryDir string `toml:"discovery_dir"`
	LogDir       string `toml:"log_dir"`
}

// Engine contains settings for the SNAP graph processing tool.
type Engine struct {
	GPTBinary string `toml:"gpt_binary"`
	Format    string `toml:"format"`
}

// Split contains the TOPSAR-Split parameter table.
type Split struct {
	Subswath      string `toml:"subswath"`
	Polarisations string `toml:"polarisations"`
	FirstBurst    int    `toml:"first_burst"`
	LastBurst     int    `toml:"last_burst"`
}

// Orbit contains the Apply-Orbit-File parameter table.
type Orbit struct {
	OrbitType  string `toml:"orbit_type"`
	PolyDegree int    `toml:"poly_degree"`
}

// Unwrap contains settings for the SNAPHU discovery stage.
type Unwrap struct {
	SnaphuBinary string `toml:"snaphu_binary"`
	ConfigName   string `toml:"config_name"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for sarchain.
//
// Configuration sections by subsystem:
//   - Inputs: Sentinel-1 SAFE products to coregister (any order)
//   - Paths: output, DEM, graph, discovery, and log locations
//   - Engine: gpt binary and product format
//   - Split / Orbit: first-stage parameter tables
//   - Unwrap: SNAPHU discovery settings
//   - Logging: log format and level
type Config struct {
	Inputs  []string `toml:"inputs"`
	Paths   Paths    `toml:"paths"`
	Engine  Engine   `toml:"engine"`
	Split   Split    `toml:"split"`
	Orbit   Orbit    `toml:"orbit"`
	Unwrap  Unwrap   `toml:"unwrap"`
	Logging Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Failures carry services.ErrConfiguration.
func Load(path string) (*Config, string, bool, error) {
	cfg, resolved, exists, err := load(path)
	if err != nil {
		return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "load", resolved, err)
	}
	return cfg, resolved, exists, nil
}

func load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, path, false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, resolvedPath, false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, resolvedPath, false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, resolvedPath, false, err
	}

	if err := cfg.validate(); err != nil {
		return nil, resolvedPath, false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sarchain.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrConfiguration, "config", "create directory", dir, err)
		}
	}
	return nil
}

// LedgerPath returns the SQLite database recording runs and artifacts.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.LogDir, "ledger.db")
}

// LockPath returns the lock file guarding the output directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.OutputDir, ".sarchain.lock")
}

// GraphWorkDir returns the directory holding generated processing graphs.
func (c *Config) GraphWorkDir() string {
	return filepath.Join(c.Paths.OutputDir, ".graphs")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
