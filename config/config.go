package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/yaklabco/kiln/internal/env"
)

// Config holds all kiln configuration values.
type Config struct {
	// SrcDir is the source root holding markup, scss/, js/, images/ and fonts/.
	SrcDir string `mapstructure:"src_dir"`

	// DistDir is the output root. It is deleted at the start of every build.
	DistDir string `mapstructure:"dist_dir"`

	// Verbose enables per-step console progress lines.
	Verbose bool `mapstructure:"verbose"`

	// Debug enables debug logging.
	Debug bool `mapstructure:"debug"`

	Server ServerConfig `mapstructure:"server"`
	Watch  WatchConfig  `mapstructure:"watch"`
	Images ImagesConfig `mapstructure:"images"`
	Minify MinifyConfig `mapstructure:"minify"`
	Styles StylesConfig `mapstructure:"styles"`

	// configFile is the path to the config file that was loaded (if any).
	configFile string
}

// ServerConfig configures the development server started by `kiln watch`.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// Addr returns the host:port the server listens on.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// WatchConfig configures the watch scheduler.
type WatchConfig struct {
	// Debounce collapses bursts of events on one binding. Zero disables it.
	Debounce time.Duration `mapstructure:"debounce"`
}

// ImagesConfig configures the image compressor.
type ImagesConfig struct {
	JPEGQuality int `mapstructure:"jpeg_quality"`
}

// MinifyConfig configures the minified artifact naming.
type MinifyConfig struct {
	Suffix string `mapstructure:"suffix"`
}

// StylesConfig configures the style compiler and the vendor-prefixer.
type StylesConfig struct {
	// Browsers are esbuild engine targets such as "chrome58" or "safari11".
	Browsers []string `mapstructure:"browsers"`

	// SassBinary is the Dart Sass executable, looked up on PATH when not absolute.
	SassBinary string `mapstructure:"sass_binary"`
}

// ConfigFile returns the path to the configuration file that was loaded,
// or an empty string if no file was loaded.
func (c *Config) ConfigFile() string {
	return c.configFile
}

// LoadOptions configures how configuration is loaded.
type LoadOptions struct {
	// ProjectDir is the directory to search for kiln.yaml.
	// If empty, the current working directory is used.
	ProjectDir string

	// Stderr is where warnings are written.
	// If nil, os.Stderr is used.
	Stderr io.Writer

	SkipProjectConfig bool
	SkipUserConfig    bool
	SkipEnv           bool
}

// Load reads configuration from all sources and returns a Config struct.
// Configuration is loaded in the following order (later sources override earlier):
//  1. Defaults
//  2. User config file (~/.config/kiln/config.yaml)
//  3. Project config file (./kiln.yaml)
//  4. Environment variables (KILN_*)
//
// Command-line flags are applied by the caller on top of the result.
// If opts is nil, default options are used.
func Load(opts *LoadOptions) (*Config, error) {
	if opts == nil {
		opts = &LoadOptions{}
	}

	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	viperInstance := viper.New()
	setDefaults(viperInstance)
	viperInstance.SetConfigType("yaml")

	var configFileUsed string

	projectDir := opts.ProjectDir
	if projectDir == "" {
		var err error
		projectDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	loc := Locate(projectDir)

	if !opts.SkipUserConfig {
		viperInstance.SetConfigName(ConfigFileName)
		viperInstance.AddConfigPath(loc.UserDir)

		if err := viperInstance.ReadInConfig(); err != nil {
			var configFileNotFoundError viper.ConfigFileNotFoundError
			if !errors.As(err, &configFileNotFoundError) {
				return nil, fmt.Errorf("failed to read user config file: %w", err)
			}
		} else {
			configFileUsed = viperInstance.ConfigFileUsed()
		}
	}

	if !opts.SkipProjectConfig {
		if _, err := os.Stat(loc.ProjectFile); err == nil {
			viperInstance.SetConfigFile(loc.ProjectFile)
			if err := viperInstance.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read project config file: %w", err)
			}
			configFileUsed = loc.ProjectFile
		}
	}

	var cfg Config
	if err := viperInstance.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if !opts.SkipEnv {
		if err := applyEnvironmentOverrides(&cfg); err != nil {
			return nil, err
		}
	}

	cfg.configFile = configFileUsed

	// Relative roots are anchored at the project directory, not the process cwd.
	cfg.SrcDir = anchor(projectDir, cfg.SrcDir)
	cfg.DistDir = anchor(projectDir, cfg.DistDir)

	result := cfg.Validate()
	if result.HasWarnings() {
		result.WriteWarnings(opts.Stderr)
	}
	if result.HasErrors() {
		return nil, errors.New(result.ErrorMessage())
	}

	return &cfg, nil
}

func anchor(base, dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}

// applyEnvironmentOverrides applies KILN_* overrides to the config.
// Environment variables take precedence over config file values.
func applyEnvironmentOverrides(cfg *Config) error {
	if v := os.Getenv("KILN_SRC"); v != "" {
		cfg.SrcDir = v
	}
	if v := os.Getenv("KILN_DIST"); v != "" {
		cfg.DistDir = v
	}
	if v := os.Getenv("KILN_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("KILN_SASS"); v != "" {
		cfg.Styles.SassBinary = v
	}
	if v := os.Getenv("KILN_PORT"); v != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parsing KILN_PORT: %w", err)
		}
		cfg.Server.Port = port
	}

	boolOverrides := map[string]*bool{
		"KILN_VERBOSE": &cfg.Verbose,
		"KILN_DEBUG":   &cfg.Debug,
		"KILN_SERVER":  &cfg.Server.Enabled,
	}
	for name, target := range boolOverrides {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		b, err := env.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", name, err)
		}
		*target = b
	}

	return nil
}

// DefaultConfig returns a Config with all default values, roots relative to
// the working directory.
func DefaultConfig() *Config {
	return &Config{
		SrcDir:  DefaultSrcDir,
		DistDir: DefaultDistDir,
		Server: ServerConfig{
			Enabled: DefaultServerEnabled,
			Host:    DefaultServerHost,
			Port:    DefaultServerPort,
		},
		Watch:  WatchConfig{Debounce: DefaultDebounce},
		Images: ImagesConfig{JPEGQuality: DefaultJPEGQuality},
		Minify: MinifyConfig{Suffix: DefaultMinSuffix},
		Styles: StylesConfig{Browsers: DefaultBrowsers(), SassBinary: DefaultSassBinary},
	}
}

// WriteDefaultConfig writes a default configuration file to the user's config directory.
func WriteDefaultConfig() (string, error) {
	loc := Locate(".")

	if err := os.MkdirAll(loc.UserDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := loc.UserFile
	if _, err := os.Stat(configPath); err == nil {
		return "", fmt.Errorf("config file already exists: %s", configPath)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfigYAML()), 0o600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return configPath, nil
}

func defaultConfigYAML() string {
	return `# kiln configuration
# Project-level overrides go in ./kiln.yaml; KILN_* environment variables win over both.

# Source and output roots, relative to the project directory.
src_dir: src
dist_dir: dist

verbose: false
debug: false

server:
  enabled: true
  host: localhost
  port: 3000

watch:
  # Bursts of changes to one asset class within this window trigger one re-run.
  debounce: 100ms

images:
  jpeg_quality: 70

minify:
  suffix: .min

styles:
  # esbuild engine targets used for vendor prefixes.
  browsers: [chrome58, edge16, firefox57, safari11, ios11]
  sass_binary: sass
`
}
