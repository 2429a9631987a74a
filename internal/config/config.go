// Package config handles application configuration loading and
// management.
package config

import "time"

// Config holds all application settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Assets   AssetsConfig   `yaml:"assets"`
	Design   DesignConfig   `yaml:"design"`
	Viewport ViewportConfig `yaml:"viewport"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GraphicsConfig holds display and rendering settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
	MSAA       int  `yaml:"msaa"`
}

// AssetsConfig holds scene asset locations and caching settings.
type AssetsConfig struct {
	// ManifestPath points at the YAML catalog of known vehicle models.
	ManifestPath string `yaml:"manifest_path"`

	// CacheDir is where fetched scene files are kept. Empty disables
	// the disk cache.
	CacheDir string `yaml:"cache_dir"`

	// Version keys the cache; bump it to invalidate cached scenes.
	Version string `yaml:"version"`

	// VirtualPrefix and RebaseURL configure the fallback path for
	// dev-server style scene URLs.
	VirtualPrefix string `yaml:"virtual_prefix"`
	RebaseURL     string `yaml:"rebase_url"`

	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// DesignConfig holds the 2D design surface settings.
type DesignConfig struct {
	// File is the design image re-synthesized onto the vehicle whenever
	// it changes on disk.
	File string `yaml:"file"`
}

// ViewportConfig holds 3D viewport behavior settings.
type ViewportConfig struct {
	Model      string  `yaml:"model"`       // model id from the manifest
	FOVDegrees float32 `yaml:"fov_degrees"` // vertical field of view
	ShowFPS    bool    `yaml:"show_fps"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			MSAA:       4,
		},
		Assets: AssetsConfig{
			ManifestPath:  "models.yaml",
			CacheDir:      "",
			VirtualPrefix: "/@fs",
			FetchTimeout:  2 * time.Minute,
		},
		Design: DesignConfig{
			File: "design.png",
		},
		Viewport: ViewportConfig{
			FOVDegrees: 45,
			ShowFPS:    false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
