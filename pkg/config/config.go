package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultUserAgent is the desktop Chrome user agent set on every page
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Config holds all configuration options for the scraper service
type Config struct {
	Server  ServerConfig  `yaml:"server" json:"server"`
	Browser BrowserConfig `yaml:"browser" json:"browser"`
	Captcha CaptchaConfig `yaml:"captcha" json:"captcha"`
	Scrape  ScrapeConfig  `yaml:"scrape" json:"scrape"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" json:"host" env:"TTSCRAPER_HOST"`
	Port            string        `yaml:"port" json:"port" env:"TTSCRAPER_PORT,PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout" env:"TTSCRAPER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout" env:"TTSCRAPER_WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout" env:"TTSCRAPER_IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" env:"TTSCRAPER_SHUTDOWN_TIMEOUT"`
	// MaxSessions bounds how many browser sessions run at once across requests
	MaxSessions int `yaml:"max_sessions" json:"max_sessions" env:"TTSCRAPER_MAX_SESSIONS"`
}

// Address returns the listen address
func (s ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}

// BrowserConfig holds browser launch configuration
type BrowserConfig struct {
	Headless       bool     `yaml:"headless" json:"headless" env:"TTSCRAPER_HEADLESS"`
	Bin            string   `yaml:"bin" json:"bin" env:"TTSCRAPER_BROWSER_BIN"`
	RemoteURL      string   `yaml:"remote_url" json:"remote_url" env:"TTSCRAPER_BROWSER_URL"`
	UserAgent      string   `yaml:"user_agent" json:"user_agent" env:"TTSCRAPER_USER_AGENT"`
	Stealth        bool     `yaml:"stealth" json:"stealth" env:"TTSCRAPER_STEALTH"`
	NoSandbox      bool     `yaml:"no_sandbox" json:"no_sandbox" env:"TTSCRAPER_NO_SANDBOX"`
	BlockResources []string `yaml:"block_resources,omitempty" json:"block_resources,omitempty" env:"TTSCRAPER_BLOCK_RESOURCES" env-separator:","`

	// LaunchAttempts counts the first launch; failed launches are retried with exponential backoff
	LaunchAttempts int           `yaml:"launch_attempts" json:"launch_attempts" env:"TTSCRAPER_LAUNCH_ATTEMPTS"`
	LaunchBackoff  time.Duration `yaml:"launch_backoff" json:"launch_backoff" env:"TTSCRAPER_LAUNCH_BACKOFF"`
}

// CaptchaConfig holds the external CAPTCHA-solving service settings.
// The values are handed to the browser launcher untouched.
type CaptchaConfig struct {
	Provider       string `yaml:"provider" json:"provider" env:"TTSCRAPER_CAPTCHA_PROVIDER"`
	Token          string `yaml:"token" json:"-" env:"TTSCRAPER_CAPTCHA_TOKEN,RECAPTCHA_TOKEN"`
	VisualFeedback bool   `yaml:"visual_feedback" json:"visual_feedback" env:"TTSCRAPER_CAPTCHA_VISUAL_FEEDBACK"`
}

// PointerMove is one step of the pre-scrape pointer sequence
type PointerMove struct {
	X     float64       `yaml:"x" json:"x"`
	Y     float64       `yaml:"y" json:"y"`
	Pause time.Duration `yaml:"pause" json:"pause"`
}

// ScrapeConfig holds the pipeline constants
type ScrapeConfig struct {
	BaseURL           string        `yaml:"base_url" json:"base_url" env:"TTSCRAPER_BASE_URL"`
	PostCap           int           `yaml:"post_cap" json:"post_cap" env:"TTSCRAPER_POST_CAP"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout" env:"TTSCRAPER_NAVIGATION_TIMEOUT"`
	SelectorTimeout   time.Duration `yaml:"selector_timeout" json:"selector_timeout" env:"TTSCRAPER_SELECTOR_TIMEOUT"`
	ListingSettle     time.Duration `yaml:"listing_settle" json:"listing_settle" env:"TTSCRAPER_LISTING_SETTLE"`
	PostSettle        time.Duration `yaml:"post_settle" json:"post_settle" env:"TTSCRAPER_POST_SETTLE"`
	ScrollStep        int           `yaml:"scroll_step" json:"scroll_step" env:"TTSCRAPER_SCROLL_STEP"`
	ScrollInterval    time.Duration `yaml:"scroll_interval" json:"scroll_interval" env:"TTSCRAPER_SCROLL_INTERVAL"`
	ScrollMaxSteps    int           `yaml:"scroll_max_steps" json:"scroll_max_steps" env:"TTSCRAPER_SCROLL_MAX_STEPS"`
	ScrollMaxDuration time.Duration `yaml:"scroll_max_duration" json:"scroll_max_duration" env:"TTSCRAPER_SCROLL_MAX_DURATION"`
	ScrollComments    bool          `yaml:"scroll_comments" json:"scroll_comments" env:"TTSCRAPER_SCROLL_COMMENTS"`
	PointerMoves      []PointerMove `yaml:"pointer_moves" json:"pointer_moves"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"TTSCRAPER_LOG_LEVEL"`
	Format string `yaml:"format" json:"format" env:"TTSCRAPER_LOG_FORMAT"`
	File   string `yaml:"file" json:"file" env:"TTSCRAPER_LOG_FILE"`
}

// DefaultConfig returns a Config instance with the pipeline's stock constants
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "3000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    20 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxSessions:     2,
		},
		Browser: BrowserConfig{
			Headless:       true,
			UserAgent:      DefaultUserAgent,
			Stealth:        true,
			LaunchAttempts: 2,
			LaunchBackoff:  2 * time.Second,
		},
		Captcha: CaptchaConfig{
			Provider:       "2captcha",
			VisualFeedback: true,
		},
		Scrape: ScrapeConfig{
			BaseURL:           "https://www.tiktok.com",
			PostCap:           5,
			NavigationTimeout: 60 * time.Second,
			SelectorTimeout:   120 * time.Second,
			ListingSettle:     5 * time.Second,
			PostSettle:        3 * time.Second,
			ScrollStep:        100,
			ScrollInterval:    100 * time.Millisecond,
			ScrollMaxSteps:    500,
			ScrollMaxDuration: 60 * time.Second,
			ScrollComments:    true,
			PointerMoves: []PointerMove{
				{X: 100, Y: 100, Pause: 2 * time.Second},
				{X: 200, Y: 200, Pause: 2 * time.Second},
				{X: 300, Y: 300, Pause: 2 * time.Second},
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromEnv overlays environment variables on top of the current values
func (c *Config) LoadFromEnv() error {
	if err := cleanenv.ReadEnv(c); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"ttscraper.yaml",
		".ttscraper.yaml",
		".ttscraper.yml",
		filepath.Join(home, ".config", "ttscraper", "config.yaml"),
		filepath.Join(home, ".ttscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port is required"))
	}
	if c.Server.MaxSessions <= 0 {
		errs = append(errs, errors.New("max sessions must be positive"))
	}

	if c.Browser.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}
	if c.Browser.LaunchAttempts < 1 {
		errs = append(errs, errors.New("launch attempts must be at least 1"))
	}
	if c.Browser.LaunchBackoff < 0 {
		errs = append(errs, errors.New("launch backoff cannot be negative"))
	}

	switch strings.ToLower(c.Captcha.Provider) {
	case "", "2captcha":
	default:
		errs = append(errs, fmt.Errorf("unsupported captcha provider %q", c.Captcha.Provider))
	}

	if u, err := url.Parse(c.Scrape.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, errors.New("base URL must be an absolute http(s) URL"))
	}
	if c.Scrape.PostCap <= 0 {
		errs = append(errs, errors.New("post cap must be positive"))
	}
	if c.Scrape.NavigationTimeout <= 0 {
		errs = append(errs, errors.New("navigation timeout must be positive"))
	}
	if c.Scrape.SelectorTimeout <= 0 {
		errs = append(errs, errors.New("selector timeout must be positive"))
	}
	if c.Scrape.ListingSettle < 0 || c.Scrape.PostSettle < 0 {
		errs = append(errs, errors.New("settle delays cannot be negative"))
	}
	if c.Scrape.ScrollStep <= 0 {
		errs = append(errs, errors.New("scroll step must be positive"))
	}
	if c.Scrape.ScrollMaxSteps <= 0 {
		errs = append(errs, errors.New("scroll max steps must be positive"))
	}
	if c.Scrape.ScrollMaxDuration <= 0 {
		errs = append(errs, errors.New("scroll max duration must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		errs = append(errs, errors.New("log format must be console or json"))
	}

	return errors.Join(errs...)
}

// Save writes the configuration as YAML. The captcha token is never written.
func (c *Config) Save(path string) error {
	out := *c
	out.Captcha.Token = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if port, ok := flags["port"].(string); ok && port != "" {
		c.Server.Port = port
	}
	if sessions, ok := flags["max-sessions"].(int); ok && sessions > 0 {
		c.Server.MaxSessions = sessions
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if remote, ok := flags["browser-url"].(string); ok && remote != "" {
		c.Browser.RemoteURL = remote
	}
	if postCap, ok := flags["post-cap"].(int); ok && postCap > 0 {
		c.Scrape.PostCap = postCap
	}
	if token, ok := flags["captcha-token"].(string); ok && token != "" {
		c.Captcha.Token = token
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if format, ok := flags["log-format"].(string); ok && format != "" {
		c.Logging.Format = format
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".ttscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
