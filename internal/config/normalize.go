package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeInputs(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEngine()
	c.normalizeUnwrap()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeInputs() error {
	inputs := make([]string, 0, len(c.Inputs))
	for i, input := range c.Inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		expanded, err := expandPath(input)
		if err != nil {
			return fmt.Errorf("inputs[%d]: %w", i, err)
		}
		inputs = append(inputs, expanded)
	}
	c.Inputs = inputs
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key   string
		value *string
	}{
		{"paths.output_dir", &c.Paths.OutputDir},
		{"paths.dem_file", &c.Paths.DEMFile},
		{"paths.graph_file", &c.Paths.GraphFile},
		{"paths.discovery_dir", &c.Paths.DiscoveryDir},
		{"paths.log_dir", &c.Paths.LogDir},
	}
	for _, field := range fields {
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeEngine() {
	c.Engine.GPTBinary = strings.TrimSpace(c.Engine.GPTBinary)
	if c.Engine.GPTBinary == "" {
		c.Engine.GPTBinary = defaultGPTBinary
	}
	c.Engine.Format = strings.TrimSpace(c.Engine.Format)
	if c.Engine.Format == "" {
		c.Engine.Format = defaultProductFormat
	}
}

func (c *Config) normalizeUnwrap() {
	c.Unwrap.SnaphuBinary = strings.TrimSpace(c.Unwrap.SnaphuBinary)
	if c.Unwrap.SnaphuBinary == "" {
		c.Unwrap.SnaphuBinary = defaultSnaphuBinary
	}
	c.Unwrap.ConfigName = strings.TrimSpace(c.Unwrap.ConfigName)
	if c.Unwrap.ConfigName == "" {
		c.Unwrap.ConfigName = defaultSnaphuConfig
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
