package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the facetdex API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Sync     SyncConfig     `yaml:"sync"`
	Query    QueryConfig    `yaml:"query"`
	Cache    CacheConfig    `yaml:"cache"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SyncConfig holds notification consumer settings.
type SyncConfig struct {
	Workers           int `yaml:"workers"`
	RetryMax          int `yaml:"retry_max"`
	RetryBaseMs       int `yaml:"retry_base_ms"`
	DequeueTimeoutSec int `yaml:"dequeue_timeout_sec"`
}

// QueryConfig holds filter query settings.
type QueryConfig struct {
	FacetBudgetMs int `yaml:"facet_budget_ms"`
	TimeoutSec    int `yaml:"timeout_sec"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	TTLSec int `yaml:"ttl_sec"`
}

// SweeperConfig holds reindex sweeper settings.
type SweeperConfig struct {
	IntervalSec int `yaml:"interval_sec"`
	BatchSize   int `yaml:"batch_size"`
	Workers     int `yaml:"workers"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Sync.Workers <= 0 {
		c.Sync.Workers = 4
	}
	if c.Sync.RetryMax <= 0 {
		c.Sync.RetryMax = 3
	}
	if c.Sync.RetryBaseMs <= 0 {
		c.Sync.RetryBaseMs = 200
	}
	if c.Sync.DequeueTimeoutSec <= 0 {
		c.Sync.DequeueTimeoutSec = 5
	}
	if c.Query.FacetBudgetMs <= 0 {
		c.Query.FacetBudgetMs = 200
	}
	if c.Query.TimeoutSec <= 0 {
		c.Query.TimeoutSec = 5
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 120
	}
	if c.Sweeper.IntervalSec <= 0 {
		c.Sweeper.IntervalSec = 300
	}
	if c.Sweeper.BatchSize <= 0 {
		c.Sweeper.BatchSize = 200
	}
	if c.Sweeper.Workers <= 0 {
		c.Sweeper.Workers = 4
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Query.FacetBudgetMs >= c.Query.TimeoutSec*1000 {
		return fmt.Errorf(
			"query.facet_budget_ms (%d) must be below query.timeout_sec (%d)",
			c.Query.FacetBudgetMs, c.Query.TimeoutSec,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
