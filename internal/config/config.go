// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Engine() EngineConfig
	Browser() BrowserConfig
	Output() OutputConfig

	// Engine Setters
	SetEngineMaxCombo(int)
	SetEngineLocateConcurrency(int)

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserIgnoreTLSErrors(bool)

	// Output Setters
	SetOutputFormat(string)
	SetOutputShowOverlays(bool)
}

// Config holds the entire application configuration. It uses private fields
// to enforce access through the Interface's getter methods.
type Config struct {
	logger  LoggerConfig
	engine  EngineConfig
	browser BrowserConfig
	output  OutputConfig
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig   { return c.logger }
func (c *Config) Engine() EngineConfig   { return c.engine }
func (c *Config) Browser() BrowserConfig { return c.browser }
func (c *Config) Output() OutputConfig   { return c.output }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetEngineMaxCombo(n int)          { c.engine.MaxCombo = n }
func (c *Config) SetEngineLocateConcurrency(n int) { c.engine.LocateConcurrency = n }
func (c *Config) SetBrowserHeadless(b bool)        { c.browser.Headless = b }
func (c *Config) SetBrowserIgnoreTLSErrors(b bool) { c.browser.IgnoreTLSErrors = b }
func (c *Config) SetOutputFormat(f string)         { c.output.Format = f }
func (c *Config) SetOutputShowOverlays(b bool)     { c.output.ShowOverlays = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// EngineConfig tunes the extraction engine.
type EngineConfig struct {
	// MaxCombo caps the attribute combination search for location strategies.
	MaxCombo int `mapstructure:"max_combo" yaml:"max_combo"`
	// SampleInset is the visibility probe corner inset, in pixels.
	SampleInset float64 `mapstructure:"sample_inset" yaml:"sample_inset"`
	// LocateConcurrency bounds parallel strategy computation per chunk.
	LocateConcurrency int `mapstructure:"locate_concurrency" yaml:"locate_concurrency"`
	// ScrollQuiet is how long the scroll offset must hold still to settle.
	ScrollQuiet time.Duration `mapstructure:"scroll_quiet" yaml:"scroll_quiet"`
	// ScrollTimeout bounds the whole settle wait.
	ScrollTimeout time.Duration `mapstructure:"scroll_timeout" yaml:"scroll_timeout"`
	// ScrollPollHz bounds how often the offset is sampled while settling.
	ScrollPollHz float64 `mapstructure:"scroll_poll_hz" yaml:"scroll_poll_hz"`
	// PreScrollDelay pauses before each scroll for slow-rendering pages.
	PreScrollDelay time.Duration `mapstructure:"pre_scroll_delay" yaml:"pre_scroll_delay"`
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless          bool           `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args              []string       `mapstructure:"args" yaml:"args"`
	NavigationTimeout time.Duration  `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	Viewport          map[string]int `mapstructure:"viewport" yaml:"viewport"`
}

// OutputConfig controls how extraction results are rendered by the CLI.
type OutputConfig struct {
	// Format is "text" for the bare summary or "json" for the full result.
	Format string `mapstructure:"format" yaml:"format"`
	// ShowOverlays records highlight rectangles for every indexed node.
	ShowOverlays bool `mapstructure:"show_overlays" yaml:"show_overlays"`
}

// fileConfig mirrors Config with exported fields so viper can decode into it.
type fileConfig struct {
	Logger  LoggerConfig  `mapstructure:"logger"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Browser BrowserConfig `mapstructure:"browser"`
	Output  OutputConfig  `mapstructure:"output"`
}

// SetDefaults initializes default values for every configuration parameter.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "domdex")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Engine --
	v.SetDefault("engine.max_combo", 3)
	v.SetDefault("engine.sample_inset", 2.0)
	v.SetDefault("engine.locate_concurrency", 4)
	v.SetDefault("engine.scroll_quiet", "100ms")
	v.SetDefault("engine.scroll_timeout", "3s")
	v.SetDefault("engine.scroll_poll_hz", 100.0)
	v.SetDefault("engine.pre_scroll_delay", "0s")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.viewport", map[string]int{"width": 1280, "height": 800})

	// -- Output --
	v.SetDefault("output.format", "text")
	v.SetDefault("output.show_overlays", false)
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	if err != nil {
		// Defaults always decode; reaching here is a programming error.
		panic(fmt.Sprintf("failed to build default config: %v", err))
	}
	return cfg
}

// NewConfigFromViper decodes a viper instance into a Config.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg := &Config{
		logger:  fc.Logger,
		engine:  fc.Engine,
		browser: fc.Browser,
		output:  fc.Output,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the configuration file, environment overrides and defaults.
// cfgFile may be empty, in which case the standard locations are searched.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("domdex")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	v.SetEnvPrefix("DOMDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// A missing config file is fine; an unreadable one is not.
		if cfgFile != "" {
			return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return NewConfigFromViper(v)
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.engine.MaxCombo < 1 {
		return fmt.Errorf("engine.max_combo must be at least 1, got %d", c.engine.MaxCombo)
	}
	if c.engine.LocateConcurrency < 1 {
		return fmt.Errorf("engine.locate_concurrency must be at least 1, got %d", c.engine.LocateConcurrency)
	}
	switch c.output.Format {
	case "text", "json":
	default:
		return fmt.Errorf("output.format must be text or json, got %q", c.output.Format)
	}
	return nil
}
