package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	// DefaultSrcDir is the source root, relative to the working directory.
	DefaultSrcDir = "src"

	// DefaultDistDir is the output root, relative to the working directory.
	DefaultDistDir = "dist"

	// DefaultServerEnabled controls whether `kiln watch` starts the dev server.
	DefaultServerEnabled = true

	// DefaultServerHost is the interface the dev server binds to.
	DefaultServerHost = "localhost"

	// DefaultServerPort is the dev server port.
	DefaultServerPort = 3000

	// DefaultJPEGQuality is the lossy JPEG quality used by the images step.
	DefaultJPEGQuality = 70

	// DefaultMinSuffix is appended to the base name of minified artifacts.
	DefaultMinSuffix = ".min"

	// DefaultSassBinary is the Dart Sass executable started in embedded mode.
	DefaultSassBinary = "sass"
)

// DefaultDebounce is how long the watcher waits for a burst of events to settle.
var DefaultDebounce = 100 * time.Millisecond //nolint:gochecknoglobals // default configuration value

// DefaultBrowsers are the engine targets vendor prefixes are generated for.
func DefaultBrowsers() []string {
	return []string{"chrome58", "edge16", "firefox57", "safari11", "ios11"}
}

// setDefaults registers DefaultConfig's values with viper, so every key has a
// default and is unmarshalled even when no file sets it.
func setDefaults(viperInstance *viper.Viper) {
	defaults := DefaultConfig()
	viperInstance.SetDefault("src_dir", defaults.SrcDir)
	viperInstance.SetDefault("dist_dir", defaults.DistDir)
	viperInstance.SetDefault("verbose", defaults.Verbose)
	viperInstance.SetDefault("debug", defaults.Debug)
	viperInstance.SetDefault("server.enabled", defaults.Server.Enabled)
	viperInstance.SetDefault("server.host", defaults.Server.Host)
	viperInstance.SetDefault("server.port", defaults.Server.Port)
	viperInstance.SetDefault("watch.debounce", defaults.Watch.Debounce)
	viperInstance.SetDefault("images.jpeg_quality", defaults.Images.JPEGQuality)
	viperInstance.SetDefault("minify.suffix", defaults.Minify.Suffix)
	viperInstance.SetDefault("styles.browsers", defaults.Styles.Browsers)
	viperInstance.SetDefault("styles.sass_binary", defaults.Styles.SassBinary)
}
