package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"sarchain/internal/config"
	"sarchain/internal/services"
)

func writeConfig(t *testing.T, path string, payload any) {
	t.Helper()
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

type pathsPayload struct {
	OutputDir    string `toml:"output_dir"`
	DEMFile      string `toml:"dem_file"`
	GraphFile    string `toml:"graph_file"`
	DiscoveryDir string `toml:"discovery_dir"`
}

type payload struct {
	Inputs []string     `toml:"inputs"`
	Paths  pathsPayload `toml:"paths"`
}

func validPayload(base string) payload {
	return payload{
		Inputs: []string{
			filepath.Join(base, "S1A_IW_SLC__1SDV_20220110T231926_20220110T231953_041405_04EC57_103E.SAFE"),
			filepath.Join(base, "S1A_IW_SLC__1SDV_20211229T231926_20211229T231953_041230_04E66A_3DBE.SAFE"),
		},
		Paths: pathsPayload{
			OutputDir:    filepath.Join(base, "out"),
			DEMFile:      filepath.Join(base, "dem.tif"),
			GraphFile:    filepath.Join(base, "graph.xml"),
			DiscoveryDir: filepath.Join(base, "out", "snaphu"),
		},
	}
}

func TestLoadWithoutFileRequiresInputs(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected validation error without inputs")
	}
	if !strings.Contains(err.Error(), "inputs") {
		t.Fatalf("expected inputs error, got %v", err)
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
}

func TestLoadCustomPathKeepsInputOrderAndDefaults(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "sarchain.toml")
	want := validPayload(tempDir)
	writeConfig(t, configPath, want)

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if len(cfg.Inputs) != 2 || cfg.Inputs[0] != want.Inputs[0] || cfg.Inputs[1] != want.Inputs[1] {
		t.Fatalf("inputs reordered or altered: %v", cfg.Inputs)
	}
	if cfg.Paths.DEMFile != want.Paths.DEMFile {
		t.Fatalf("unexpected dem file %q", cfg.Paths.DEMFile)
	}
	defaults := config.Default()
	if cfg.Engine.GPTBinary != defaults.Engine.GPTBinary {
		t.Fatalf("expected default gpt binary, got %q", cfg.Engine.GPTBinary)
	}
	if cfg.Split.Subswath != "IW2" || cfg.Split.FirstBurst != 1 || cfg.Split.LastBurst != 3 {
		t.Fatalf("unexpected split defaults: %+v", cfg.Split)
	}
	if cfg.Unwrap.ConfigName != "snaphu.conf" {
		t.Fatalf("unexpected snaphu config name %q", cfg.Unwrap.ConfigName)
	}
	if cfg.LedgerPath() != filepath.Join(cfg.Paths.LogDir, "ledger.db") {
		t.Fatalf("unexpected ledger path %q", cfg.LedgerPath())
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	configPath := filepath.Join(t.TempDir(), "sarchain.toml")
	p := validPayload(home)
	p.Paths.OutputDir = "~/sar/out"
	writeConfig(t, configPath, p)

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.OutputDir != filepath.Join(home, "sar", "out") {
		t.Fatalf("expected tilde expansion, got %q", cfg.Paths.OutputDir)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "sarchain.toml")
	if err := os.WriteFile(configPath, []byte("inputs = []\nunknown_key = 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for unknown key, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if len(cfg.Inputs) != 2 {
		t.Fatalf("expected two sample inputs, got %d", len(cfg.Inputs))
	}
	if !strings.HasSuffix(cfg.Inputs[0], ".SAFE") {
		t.Fatalf("expected SAFE product in sample, got %q", cfg.Inputs[0])
	}
	if cfg.Unwrap.ConfigName != "snaphu.conf" {
		t.Fatalf("unexpected sample unwrap config %q", cfg.Unwrap.ConfigName)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	base := func() config.Config {
		cfg := config.Default()
		cfg.Inputs = []string{"/in/S1A_IW_SLC__1SDV_20211229T231926_x.SAFE"}
		cfg.Paths.OutputDir = "/out"
		cfg.Paths.DEMFile = "/dem.tif"
		cfg.Paths.GraphFile = "/graph.xml"
		cfg.Paths.DiscoveryDir = "/out/snaphu"
		cfg.Paths.LogDir = "/logs"
		return cfg
	}

	cfg := base()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected base config to validate, got %v", err)
	}

	cases := map[string]func(*config.Config){
		"non-safe input":    func(c *config.Config) { c.Inputs = []string{"/in/product.zip"} },
		"duplicate input":   func(c *config.Config) { c.Inputs = append(c.Inputs, c.Inputs[0]) },
		"missing dem":       func(c *config.Config) { c.Paths.DEMFile = "" },
		"missing graph":     func(c *config.Config) { c.Paths.GraphFile = " " },
		"missing discovery": func(c *config.Config) { c.Paths.DiscoveryDir = "" },
		"burst order":       func(c *config.Config) { c.Split.FirstBurst = 4 },
		"zero poly degree":  func(c *config.Config) { c.Orbit.PolyDegree = 0 },
		"nested conf name":  func(c *config.Config) { c.Unwrap.ConfigName = "sub/snaphu.conf" },
		"log format":        func(c *config.Config) { c.Logging.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error for %s", name)
			}
			if services.Kind(err) != services.ErrConfiguration.Error() {
				t.Fatalf("kind = %q for %v", services.Kind(err), err)
			}
		})
	}
}
