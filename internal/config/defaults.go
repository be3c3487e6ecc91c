package config

const (
	defaultInputDir          = "~/Pictures/raw"
	defaultOutputDir         = "~/Pictures/converted"
	defaultLogDir            = "~/.local/share/rawconv/logs"
	defaultDecoderBinary     = "dcraw"
	defaultEnhanceBackend    = "auto"
	defaultContrast          = 1.1
	defaultBrightness        = 10
	defaultOutputFormat      = "jpeg"
	defaultOutputQuality     = 95
	defaultMinFreeMiB        = 512
	defaultMinBatteryPercent = 20
	defaultWatchDebounce     = 5
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// DefaultExtensions lists the RAW container extensions discovery accepts by default.
func DefaultExtensions() []string {
	return []string{".nef", ".cr2", ".arw", ".dng", ".orf", ".raf"}
}

// DefaultDecoderArgs returns dcraw flags: write to stdout, camera white balance, 8-bit TIFF.
func DefaultDecoderArgs() []string {
	return []string{"-c", "-w", "-T"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:  defaultInputDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Input: Input{
			Extensions: DefaultExtensions(),
		},
		Decode: Decode{
			Binary: defaultDecoderBinary,
			Args:   DefaultDecoderArgs(),
		},
		Enhance: Enhance{
			Enabled:    true,
			Backend:    defaultEnhanceBackend,
			Sharpen:    true,
			Contrast:   defaultContrast,
			Brightness: defaultBrightness,
		},
		Output: Output{
			Format:  defaultOutputFormat,
			Quality: defaultOutputQuality,
		},
		Preflight: Preflight{
			Enabled:           true,
			MinFreeMiB:        defaultMinFreeMiB,
			MinBatteryPercent: defaultMinBatteryPercent,
		},
		Watch: Watch{
			DebounceSeconds: defaultWatchDebounce,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
