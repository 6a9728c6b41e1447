// Package config loads and validates the application configuration from the
// config file, environment variables, and flags, in that order of
// precedence. Validation is fail-fast: a bad config terminates the run
// before any browser is launched.
package config

import (
	"fmt"
	"os"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/easyapply-cli/internal/humanoid"
	"github.com/xkilldash9x/easyapply-cli/internal/search"
)

// Config holds the entire application configuration.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	Credentials CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`
	Profile     ProfileConfig     `mapstructure:"profile" yaml:"profile"`
	Search      SearchConfig      `mapstructure:"search" yaml:"search"`
	Blacklist   BlacklistConfig   `mapstructure:"blacklist" yaml:"blacklist"`
	Uploads     UploadsConfig     `mapstructure:"uploads" yaml:"uploads"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output"`
	Browser     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	Humanoid    humanoid.Config   `mapstructure:"humanoid" yaml:"humanoid"`
}

// LoggerConfig controls the zap logger and its rotating file sink.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// CredentialsConfig is the account the bot signs in with. Never put these
// in the config file; EASYAPPLY_USERNAME and EASYAPPLY_PASSWORD are bound.
type CredentialsConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}

// ProfileConfig carries the applicant constants used in answers.
type ProfileConfig struct {
	PhoneNumber string `mapstructure:"phone_number" yaml:"phone_number"`
	Salary      string `mapstructure:"salary" yaml:"salary"`
	Rate        string `mapstructure:"rate" yaml:"rate"`
}

// SearchConfig shapes the search run.
type SearchConfig struct {
	Positions        []string      `mapstructure:"positions" yaml:"positions"`
	Locations        []string      `mapstructure:"locations" yaml:"locations"`
	ExperienceLevels []int         `mapstructure:"experience_levels" yaml:"experience_levels"`
	TimeFilter       string        `mapstructure:"time_filter" yaml:"time_filter"`
	MaxRuntime       time.Duration `mapstructure:"max_runtime" yaml:"max_runtime"`
	PagesPerMinute   int           `mapstructure:"pages_per_minute" yaml:"pages_per_minute"`
	SkipWindow       time.Duration `mapstructure:"skip_window" yaml:"skip_window"`
}

// BlacklistConfig lists companies and title keywords never applied to.
type BlacklistConfig struct {
	Companies []string `mapstructure:"companies" yaml:"companies"`
	Titles    []string `mapstructure:"titles" yaml:"titles"`
}

// UploadsConfig points at the documents attached during applications.
type UploadsConfig struct {
	Resume      string `mapstructure:"resume" yaml:"resume"`
	CoverLetter string `mapstructure:"cover_letter" yaml:"cover_letter"`
}

// OutputConfig points at the durable CSV records.
type OutputConfig struct {
	ApplicationLog string `mapstructure:"application_log" yaml:"application_log"`
	AnswerCache    string `mapstructure:"answer_cache" yaml:"answer_cache"`
}

// BrowserConfig controls the Chrome session.
type BrowserConfig struct {
	Headless bool `mapstructure:"headless" yaml:"headless"`
	Debug    bool `mapstructure:"debug" yaml:"debug"`
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "easyapply-cli")
	v.SetDefault("logger.log_file", "easyapply.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Search --
	v.SetDefault("search.time_filter", "24 hours")
	v.SetDefault("search.max_runtime", time.Hour)
	v.SetDefault("search.pages_per_minute", 6)
	v.SetDefault("search.skip_window", 48*time.Hour)

	// -- Output --
	v.SetDefault("output.application_log", "output.csv")
	v.SetDefault("output.answer_cache", "qa.csv")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.debug", false)

	// -- Humanoid --
	setHumanoidDefaults(v)
}

func setHumanoidDefaults(v *viper.Viper) {
	d := humanoid.DefaultConfig()
	v.SetDefault("humanoid.min_action_delay", d.MinActionDelay)
	v.SetDefault("humanoid.max_action_delay", d.MaxActionDelay)
	v.SetDefault("humanoid.cognitive_mean_ms", d.CognitiveMeanMs)
	v.SetDefault("humanoid.cognitive_std_dev_ms", d.CognitiveStdDevMs)
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	v.BindEnv("credentials.username", "EASYAPPLY_USERNAME")
	v.BindEnv("credentials.password", "EASYAPPLY_PASSWORD")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves ~ in user-supplied file paths.
func (c *Config) expandPaths() error {
	for _, p := range []*string{
		&c.Uploads.Resume, &c.Uploads.CoverLetter,
		&c.Output.ApplicationLog, &c.Output.AnswerCache,
		&c.Logger.LogFile,
	} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expanding path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Credentials.Username == "" || c.Credentials.Password == "" {
		return fmt.Errorf("credentials are required; set EASYAPPLY_USERNAME and EASYAPPLY_PASSWORD")
	}
	if len(c.Search.Positions) == 0 {
		return fmt.Errorf("search.positions must list at least one position")
	}
	if len(c.Search.Locations) == 0 {
		return fmt.Errorf("search.locations must list at least one location")
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search configuration invalid: %w", err)
	}
	if c.Uploads.Resume == "" {
		return fmt.Errorf("uploads.resume is a required configuration field")
	}
	if _, err := os.Stat(c.Uploads.Resume); err != nil {
		return fmt.Errorf("uploads.resume not readable at %s: %w", c.Uploads.Resume, err)
	}
	if c.Uploads.CoverLetter != "" {
		if _, err := os.Stat(c.Uploads.CoverLetter); err != nil {
			return fmt.Errorf("uploads.cover_letter not readable at %s: %w", c.Uploads.CoverLetter, err)
		}
	}
	if c.Profile.PhoneNumber == "" {
		return fmt.Errorf("profile.phone_number is a required configuration field")
	}
	return nil
}

// Validate checks the search settings.
func (s *SearchConfig) Validate() error {
	for _, level := range s.ExperienceLevels {
		if _, ok := search.ExperienceLevelNames[level]; !ok {
			return fmt.Errorf("experience level %d is not a known code (1-6)", level)
		}
	}
	if s.TimeFilter != "any time" && search.TimeFilterParam(s.TimeFilter) == "" {
		return fmt.Errorf("time_filter %q is not one of: 24 hours, past week, past month, any time", s.TimeFilter)
	}
	if s.MaxRuntime <= 0 {
		return fmt.Errorf("max_runtime must be a positive duration")
	}
	if s.PagesPerMinute <= 0 {
		return fmt.Errorf("pages_per_minute must be a positive integer")
	}
	return nil
}

// ExperienceLevelSummary names the configured levels for the startup log.
func (s *SearchConfig) ExperienceLevelSummary() []string {
	names := make([]string, 0, len(s.ExperienceLevels))
	for _, level := range s.ExperienceLevels {
		names = append(names, search.ExperienceLevelNames[level])
	}
	return names
}
