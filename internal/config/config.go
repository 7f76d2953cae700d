// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Server() ServerConfig
	Browser() BrowserConfig
	Navigation() NavigationConfig
	Search() SearchConfig
	Shutdown() ShutdownConfig
	Crawler() CrawlerConfig
	LLM() LLMConfig
}

// Config is the root of the application configuration tree. Fields stay
// exported so viper can unmarshal into them; callers go through the accessor
// methods.
type Config struct {
	LoggerCfg     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	ServerCfg     ServerConfig     `mapstructure:"server" yaml:"server"`
	BrowserCfg    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	NavigationCfg NavigationConfig `mapstructure:"navigation" yaml:"navigation"`
	SearchCfg     SearchConfig     `mapstructure:"search" yaml:"search"`
	ShutdownCfg   ShutdownConfig   `mapstructure:"shutdown" yaml:"shutdown"`
	CrawlerCfg    CrawlerConfig    `mapstructure:"crawler" yaml:"crawler"`
	LLMCfg        LLMConfig        `mapstructure:"llm" yaml:"llm"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig         { return c.LoggerCfg }
func (c *Config) Server() ServerConfig         { return c.ServerCfg }
func (c *Config) Browser() BrowserConfig       { return c.BrowserCfg }
func (c *Config) Navigation() NavigationConfig { return c.NavigationCfg }
func (c *Config) Search() SearchConfig         { return c.SearchCfg }
func (c *Config) Shutdown() ShutdownConfig     { return c.ShutdownCfg }
func (c *Config) Crawler() CrawlerConfig       { return c.CrawlerCfg }
func (c *Config) LLM() LLMConfig               { return c.LLMCfg }

// Validate checks the full tree and aggregates the first failure per section.
func (c *Config) Validate() error {
	if err := c.ServerCfg.Validate(); err != nil {
		return err
	}
	if err := c.BrowserCfg.Validate(); err != nil {
		return err
	}
	if err := c.NavigationCfg.Validate(); err != nil {
		return err
	}
	if err := c.SearchCfg.Validate(); err != nil {
		return err
	}
	if err := c.ShutdownCfg.Validate(); err != nil {
		return err
	}
	if err := c.CrawlerCfg.Validate(); err != nil {
		return err
	}
	if err := c.LLMCfg.Validate(); err != nil {
		return err
	}
	return nil
}

// -- Logger --

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

// ColorConfig maps log levels to terminal color names for console output.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// -- Server --

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host" yaml:"host"`
	Port         int           `mapstructure:"port" yaml:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// Addr renders the host:port pair http.Server expects.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	return nil
}

// -- Browser --

// BrowserConfig controls how browser processes are launched and where
// persistent profile directories live.
type BrowserConfig struct {
	Headless     bool     `mapstructure:"headless" yaml:"headless"`
	Args         []string `mapstructure:"args" yaml:"args"`
	ProfilesRoot string   `mapstructure:"profiles_root" yaml:"profiles_root"`
	Install      bool     `mapstructure:"install" yaml:"install"`
}

func (b BrowserConfig) Validate() error {
	if b.ProfilesRoot == "" {
		return fmt.Errorf("browser.profiles_root must not be empty")
	}
	return nil
}

// -- Navigation --

// NavigationConfig supplies the fallback navigation parameters used when a
// request omits them. Timeout is in milliseconds and Idle in seconds,
// matching the wire contract.
type NavigationConfig struct {
	WaitUntil string  `mapstructure:"wait_until" yaml:"wait_until"`
	Timeout   float64 `mapstructure:"timeout" yaml:"timeout"`
	Idle      float64 `mapstructure:"idle" yaml:"idle"`
}

func (n NavigationConfig) Validate() error {
	switch n.WaitUntil {
	case "commit", "domcontentloaded", "load", "networkidle":
	default:
		return fmt.Errorf("navigation.wait_until must be one of commit, domcontentloaded, load, networkidle")
	}
	if n.Timeout < 0 {
		return fmt.Errorf("navigation.timeout must not be negative")
	}
	if n.Idle < 0 {
		return fmt.Errorf("navigation.idle must not be negative")
	}
	return nil
}

// -- Search --

// SearchConfig tunes the result paginator.
type SearchConfig struct {
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	MaxPages   int           `mapstructure:"max_pages" yaml:"max_pages"`
	SettleTime time.Duration `mapstructure:"settle_time" yaml:"settle_time"`
}

func (s SearchConfig) Validate() error {
	if s.BaseURL == "" {
		return fmt.Errorf("search.base_url must not be empty")
	}
	if s.MaxPages <= 0 {
		return fmt.Errorf("search.max_pages must be a positive integer")
	}
	if s.SettleTime < 0 {
		return fmt.Errorf("search.settle_time must not be negative")
	}
	return nil
}

// -- Shutdown --

// ShutdownConfig bounds profile teardown. StepTimeout caps each close step
// for a single profile; GlobalTimeout caps draining all of them.
type ShutdownConfig struct {
	StepTimeout   time.Duration `mapstructure:"step_timeout" yaml:"step_timeout"`
	GlobalTimeout time.Duration `mapstructure:"global_timeout" yaml:"global_timeout"`
}

func (s ShutdownConfig) Validate() error {
	if s.StepTimeout <= 0 {
		return fmt.Errorf("shutdown.step_timeout must be a positive duration")
	}
	if s.GlobalTimeout <= 0 {
		return fmt.Errorf("shutdown.global_timeout must be a positive duration")
	}
	if s.GlobalTimeout < s.StepTimeout {
		return fmt.Errorf("shutdown.global_timeout must not be shorter than shutdown.step_timeout")
	}
	return nil
}

// -- Crawler --

// CrawlerConfig drives the site crawler client.
type CrawlerConfig struct {
	ControllerURL  string        `mapstructure:"controller_url" yaml:"controller_url"`
	Concurrency    int           `mapstructure:"concurrency" yaml:"concurrency"`
	MaxDepth       int           `mapstructure:"max_depth" yaml:"max_depth"`
	RateLimit      float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	OutputFile     string        `mapstructure:"output_file" yaml:"output_file"`
}

func (c CrawlerConfig) Validate() error {
	if c.ControllerURL == "" {
		return fmt.Errorf("crawler.controller_url must not be empty")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be a positive integer")
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("crawler.max_depth must not be negative")
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("crawler.rate_limit must be a positive rate")
	}
	return nil
}

// -- LLM --

// LLMConfig points the crawler's extraction step at an OpenAI-compatible
// endpoint. The API key is only read from the environment.
type LLMConfig struct {
	BaseURL         string `mapstructure:"base_url" yaml:"base_url"`
	Model           string `mapstructure:"model" yaml:"model"`
	APIKey          string `mapstructure:"api_key" yaml:"-"`
	MaxContentChars int    `mapstructure:"max_content_chars" yaml:"max_content_chars"`
}

func (l LLMConfig) Validate() error {
	if l.Model == "" {
		return fmt.Errorf("llm.model must not be empty")
	}
	if l.MaxContentChars <= 0 {
		return fmt.Errorf("llm.max_content_chars must be a positive integer")
	}
	return nil
}

// -- Construction --

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "pagepilot")
	v.SetDefault("logger.log_file", "pagepilot.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Server --
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "0s")
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.idle_timeout", "120s")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.profiles_root", "~/.pagepilot/profiles")
	v.SetDefault("browser.install", false)

	// -- Navigation --
	v.SetDefault("navigation.wait_until", "commit")
	v.SetDefault("navigation.timeout", 3600)
	v.SetDefault("navigation.idle", 1.5)

	// -- Search --
	v.SetDefault("search.base_url", "https://www.google.com/search")
	v.SetDefault("search.max_pages", 10)
	v.SetDefault("search.settle_time", "3s")

	// -- Shutdown --
	v.SetDefault("shutdown.step_timeout", "10s")
	v.SetDefault("shutdown.global_timeout", "30s")

	// -- Crawler --
	v.SetDefault("crawler.controller_url", "http://localhost:8000")
	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.max_depth", 2)
	v.SetDefault("crawler.rate_limit", 2.0)
	v.SetDefault("crawler.request_timeout", "120s")
	v.SetDefault("crawler.output_file", "crawl_results.json")

	// -- LLM --
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "google/gemini-2.5-flash-lite")
	v.SetDefault("llm.max_content_chars", 30000)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	v.BindEnv("llm.api_key", "PAGEPILOT_LLM_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand ~ so downstream code only ever sees absolute-ish paths.
	root, err := homedir.Expand(cfg.BrowserCfg.ProfilesRoot)
	if err != nil {
		return nil, fmt.Errorf("expanding browser.profiles_root: %w", err)
	}
	cfg.BrowserCfg.ProfilesRoot = root

	out, err := homedir.Expand(cfg.CrawlerCfg.OutputFile)
	if err != nil {
		return nil, fmt.Errorf("expanding crawler.output_file: %w", err)
	}
	cfg.CrawlerCfg.OutputFile = out

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// NewDefaultConfig returns a Config populated purely from SetDefaults. It is
// primarily useful for tests and for composing a config without a file.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	if err != nil {
		// SetDefaults and Validate are maintained together.
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}
