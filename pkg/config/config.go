package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alimgiray/gh-activity-report/pkg/logger"
)

type Config struct {
	GitHub   GitHubConfig
	Fetch    FetchConfig
	Report   ReportConfig
	Database DatabaseConfig
}

type GitHubConfig struct {
	Token   string
	BaseURL string
}

type FetchConfig struct {
	Workers               int
	PerPage               int
	MaxRepositories       int
	MaxRetries            int
	RetryBaseDelay        time.Duration
	MaxRateLimitWaits     int
	RateLimitFallbackWait time.Duration
	RateLimitMaxWait      time.Duration
}

type ReportConfig struct {
	Org                 string
	Users               []string
	ExcludeUsers        []string
	ExcludeRepositories []string
	OutputDir           string
	WriteXLSX           bool
	DefaultWindowDays   int
}

type DatabaseConfig struct {
	// DSN of the staging database, empty means a private in-memory database per run
	DSN string
}

// fileConfig is the optional YAML overlay
type fileConfig struct {
	Org                 string   `yaml:"org"`
	Users               []string `yaml:"users"`
	ExcludeUsers        []string `yaml:"exclude_users"`
	ExcludeRepositories []string `yaml:"exclude_repositories"`
	MaxRepositories     int      `yaml:"max_repositories"`
	FetchWorkers        int      `yaml:"fetch_workers"`
	OutputDir           string   `yaml:"output_dir"`
	WriteXLSX           *bool    `yaml:"xlsx"`
}

// Load loads configuration from .env file, environment variables and an optional YAML file.
// An empty path falls back to REPORT_CONFIG.
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		logger.Debugf("No .env file found, using environment variables")
	}

	cfg := &Config{
		GitHub: GitHubConfig{
			Token:   getEnv("GH_TOKEN", os.Getenv("GITHUB_TOKEN")),
			BaseURL: getEnv("GITHUB_API_URL", ""),
		},
		Fetch: FetchConfig{
			Workers:               getEnvAsInt("FETCH_WORKERS", 4),
			PerPage:               getEnvAsInt("FETCH_PER_PAGE", 100),
			MaxRepositories:       getEnvAsInt("MAX_REPOSITORIES", 30),
			MaxRetries:            getEnvAsInt("MAX_RETRIES", 5),
			RetryBaseDelay:        getEnvAsDuration("RETRY_BASE_DELAY", 5*time.Second),
			MaxRateLimitWaits:     getEnvAsInt("MAX_RATE_LIMIT_WAITS", 10),
			RateLimitFallbackWait: getEnvAsDuration("RATE_LIMIT_FALLBACK_WAIT", 60*time.Second),
			RateLimitMaxWait:      getEnvAsDuration("RATE_LIMIT_MAX_WAIT", 15*time.Minute),
		},
		Report: ReportConfig{
			Org:               getEnv("GH_ORG", ""),
			OutputDir:         getEnv("OUTPUT_DIR", "."),
			WriteXLSX:         getEnvAsBool("REPORT_XLSX", false),
			DefaultWindowDays: getEnvAsInt("DEFAULT_WINDOW_DAYS", 90),
		},
		Database: DatabaseConfig{
			DSN: getEnv("STAGING_DSN", ""),
		},
	}

	if path == "" {
		path = os.Getenv("REPORT_CONFIG")
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// applyFile overlays non-empty values from a YAML file
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Org != "" {
		c.Report.Org = fc.Org
	}
	if len(fc.Users) > 0 {
		c.Report.Users = fc.Users
	}
	c.Report.ExcludeUsers = append(c.Report.ExcludeUsers, fc.ExcludeUsers...)
	c.Report.ExcludeRepositories = append(c.Report.ExcludeRepositories, fc.ExcludeRepositories...)
	if fc.MaxRepositories > 0 {
		c.Fetch.MaxRepositories = fc.MaxRepositories
	}
	if fc.FetchWorkers > 0 {
		c.Fetch.Workers = fc.FetchWorkers
	}
	if fc.OutputDir != "" {
		c.Report.OutputDir = fc.OutputDir
	}
	if fc.WriteXLSX != nil {
		c.Report.WriteXLSX = *fc.WriteXLSX
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logger.Warnf("Invalid value for %s, using default: %d", key, defaultValue)
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolValue
		}
		logger.Warnf("Invalid value for %s, using default: %t", key, defaultValue)
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("90s", "2m")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		logger.Warnf("Invalid value for %s, using default: %s", key, defaultValue)
	}
	return defaultValue
}
