package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagProgress = flag.Float64("progress", 0, "Frames advanced per tick")
	flagStatic   = flag.Bool("static", false, "Ignore keyframes and show the rest pose")
	flagParallel = flag.Bool("parallel", false, "Deform meshes concurrently")
	flagOut      = flag.String("out", "", "Output path for export")
	flagRest     = flag.Bool("rest", false, "Also export bone models in the rest pose")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagProgress > 0 {
		cfg.Animation.Progress = float32(*flagProgress)
	}
	if *flagStatic {
		cfg.Animation.Animated = false
	}
	if *flagParallel {
		cfg.Animation.Parallel = true
	}
	if *flagOut != "" {
		cfg.Export.Output = *flagOut
	}
	if *flagRest {
		cfg.Export.RestBones = true
	}
}
