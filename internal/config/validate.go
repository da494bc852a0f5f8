package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"sarchain/internal/services"
)

// Validate ensures the configuration is usable. It checks shape only; whether
// the DEM or graph file exists is decided by the stage that needs it.
// Failures carry services.ErrConfiguration.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "", err)
	}
	return nil
}

func (c *Config) validate() error {
	if err := c.validateInputs(); err != nil {
		return err
	}
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSplit(); err != nil {
		return err
	}
	if err := c.validateOrbit(); err != nil {
		return err
	}
	if err := c.validateUnwrap(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateInputs() error {
	if len(c.Inputs) == 0 {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("inputs must list at least one product; edit %s (create with 'sarchain config init')", defaultPath)
	}
	seen := make(map[string]int, len(c.Inputs))
	for i, input := range c.Inputs {
		if !strings.HasSuffix(filepath.Base(input), ".SAFE") {
			return fmt.Errorf("inputs[%d]: %q is not a .SAFE product", i, input)
		}
		if prev, ok := seen[input]; ok {
			return fmt.Errorf("inputs[%d]: duplicates inputs[%d] (%s)", i, prev, input)
		}
		seen[input] = i
	}
	return nil
}

func (c *Config) validatePaths() error {
	return ensureSetMap(map[string]string{
		"paths.output_dir":    c.Paths.OutputDir,
		"paths.dem_file":      c.Paths.DEMFile,
		"paths.graph_file":    c.Paths.GraphFile,
		"paths.discovery_dir": c.Paths.DiscoveryDir,
		"paths.log_dir":       c.Paths.LogDir,
	})
}

func (c *Config) validateSplit() error {
	if strings.TrimSpace(c.Split.Subswath) == "" {
		return errors.New("split.subswath must be set")
	}
	if strings.TrimSpace(c.Split.Polarisations) == "" {
		return errors.New("split.polarisations must be set")
	}
	if c.Split.FirstBurst <= 0 || c.Split.LastBurst <= 0 {
		return errors.New("split.first_burst and split.last_burst must be positive")
	}
	if c.Split.FirstBurst > c.Split.LastBurst {
		return errors.New("split.first_burst must not exceed split.last_burst")
	}
	return nil
}

func (c *Config) validateOrbit() error {
	if strings.TrimSpace(c.Orbit.OrbitType) == "" {
		return errors.New("orbit.orbit_type must be set")
	}
	if c.Orbit.PolyDegree <= 0 {
		return errors.New("orbit.poly_degree must be positive")
	}
	return nil
}

func (c *Config) validateUnwrap() error {
	if strings.ContainsAny(c.Unwrap.ConfigName, `/\`) {
		return fmt.Errorf("unwrap.config_name must be a bare file name, got %q", c.Unwrap.ConfigName)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensureSetMap(values map[string]string) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if strings.TrimSpace(values[key]) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	return nil
}
