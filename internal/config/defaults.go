package config

const (
	defaultConfigPath      = "~/.config/sarchain/config.toml"
	defaultLogDir          = "~/.local/share/sarchain/logs"
	defaultGPTBinary       = "gpt"
	defaultProductFormat   = "BEAM-DIMAP"
	defaultSubswath        = "IW2"
	defaultPolarisations   = "VV"
	defaultFirstBurst      = 1
	defaultLastBurst       = 3
	defaultOrbitType       = "Sentinel Precise (Auto Download)"
	defaultOrbitPolyDegree = 3
	defaultSnaphuBinary    = "snaphu"
	defaultSnaphuConfig    = "snaphu.conf"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults. Inputs and
// the pipeline paths are intentionally left empty.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Engine: Engine{
			GPTBinary: defaultGPTBinary,
			Format:    defaultProductFormat,
		},
		Split: Split{
			Subswath:      defaultSubswath,
			Polarisations: defaultPolarisations,
			FirstBurst:    defaultFirstBurst,
			LastBurst:     defaultLastBurst,
		},
		Orbit: Orbit{
			OrbitType:  defaultOrbitType,
			PolyDegree: defaultOrbitPolyDegree,
		},
		Unwrap: Unwrap{
			SnaphuBinary: defaultSnaphuBinary,
			ConfigName:   defaultSnaphuConfig,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
