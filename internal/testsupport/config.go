package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"sarchain/internal/config"
)

// Acquisition timestamps used by the default two-scene fixture.
const (
	MasterTimestamp = "20211229T231926"
	SlaveTimestamp  = "20220110T231926"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Two SAFE inputs (slave listed first), a DEM file, and a graph file are
// created on disk. Options run afterwards.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	inputDir := filepath.Join(base, "input")
	cfgVal.Inputs = []string{
		MakeScene(t, inputDir, SlaveTimestamp),
		MakeScene(t, inputDir, MasterTimestamp),
	}
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.DEMFile = filepath.Join(base, "dem", "srtm_1sec.tif")
	cfgVal.Paths.GraphFile = filepath.Join(base, "graphs", "snaphu_export.xml")
	cfgVal.Paths.DiscoveryDir = filepath.Join(base, "output", "snaphu")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	WriteFile(t, cfgVal.Paths.DEMFile, 16)
	WriteFile(t, cfgVal.Paths.GraphFile, 16)

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithInputs replaces the configured inputs.
func WithInputs(paths ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Inputs = append([]string(nil), paths...)
	}
}

// WithMissingDEM points the DEM path at a file that does not exist.
func WithMissingDEM() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.DEMFile = filepath.Join(b.baseDir, "dem", "missing.tif")
	}
}

// WithLogFormat overrides the logging format.
func WithLogFormat(format string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Logging.Format = format
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, gpt and snaphu are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"gpt", "snaphu"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
