package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Input    InputConfig    `mapstructure:"input"`
	Output   OutputConfig   `mapstructure:"output"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// InputConfig holds the input CSV location
type InputConfig struct {
	File string `mapstructure:"file"`
}

// OutputConfig holds the output CSV location and merge behavior
type OutputConfig struct {
	File string `mapstructure:"file"`
	// DedupeMode is "keep_last" (retry rows replace first-phase rows) or
	// "keep_all" (every attempt is written).
	DedupeMode string `mapstructure:"dedupe_mode"`
}

// ScraperConfig holds scraping policy knobs
type ScraperConfig struct {
	BaseURL               string `mapstructure:"base_url"`
	RetryWindowDays       int    `mapstructure:"retry_window_days"`
	VenueFailureThreshold int    `mapstructure:"venue_failure_threshold"`
}

// TimeoutsConfig holds page interaction timeouts in seconds
type TimeoutsConfig struct {
	ActionSeconds     int `mapstructure:"action_seconds"`
	DateLoadSeconds   int `mapstructure:"date_load_seconds"`
	ShortSeconds      int `mapstructure:"short_seconds"`
	RunnerRowsSeconds int `mapstructure:"runner_rows_seconds"`
}

func (t TimeoutsConfig) Action() time.Duration     { return time.Duration(t.ActionSeconds) * time.Second }
func (t TimeoutsConfig) DateLoad() time.Duration   { return time.Duration(t.DateLoadSeconds) * time.Second }
func (t TimeoutsConfig) Short() time.Duration      { return time.Duration(t.ShortSeconds) * time.Second }
func (t TimeoutsConfig) RunnerRows() time.Duration { return time.Duration(t.RunnerRowsSeconds) * time.Second }

// BrowserConfig holds Chrome launch settings
type BrowserConfig struct {
	Headless            bool     `mapstructure:"headless"`
	BinPath             string   `mapstructure:"bin_path"`
	MaxActionsPerSecond int      `mapstructure:"max_actions_per_second"`
	Proxies             []string `mapstructure:"proxies"`
}

// DatabaseConfig holds optional result archive database configuration
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// RedisConfig holds optional progress tracking Redis connection details
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
}

// Load loads configuration from YAML file with environment variable overrides
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, fmt.Errorf("config.yaml file not found in current directory")
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("input.file", "bet sample.csv")
	viper.SetDefault("output.file", "bet sample_with_bsp.csv")
	viper.SetDefault("output.dedupe_mode", "keep_last")

	viper.SetDefault("scraper.base_url", "https://www.betfair.com.au/hub/racing/horse-racing/racing-results/")
	viper.SetDefault("scraper.retry_window_days", 8)
	viper.SetDefault("scraper.venue_failure_threshold", 2)

	viper.SetDefault("timeouts.action_seconds", 20)
	viper.SetDefault("timeouts.date_load_seconds", 120)
	viper.SetDefault("timeouts.short_seconds", 10)
	viper.SetDefault("timeouts.runner_rows_seconds", 20)

	viper.SetDefault("browser.headless", true)
	viper.SetDefault("browser.bin_path", "")
	viper.SetDefault("browser.max_actions_per_second", 4)

	viper.SetDefault("database.enabled", false)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "bsp_finder")
	viper.SetDefault("database.user", "bsp_user")
	viper.SetDefault("database.password", "bsp_pass")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.database", 0)
}
