package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/pickpoint/internal/domain"
)

// Config holds the pickpoint API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Provider ProviderConfig `yaml:"provider"`
	Search   SearchConfig   `yaml:"search"`
	Sessions SessionsConfig `yaml:"sessions"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
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

// DatabaseConfig holds the optional redis connection used for budget counters.
// Empty Addrs keeps the counters in memory.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ProviderConfig holds places provider settings. An empty APIKey is allowed:
// every search then degrades to the fallback list.
type ProviderConfig struct {
	APIKey     string       `yaml:"api_key"`
	BaseURL    string       `yaml:"base_url"`
	Region     string       `yaml:"region"`
	Language   string       `yaml:"language"`
	Country    string       `yaml:"country"`
	TimeoutSec int          `yaml:"timeout_sec"`
	Budget     BudgetConfig `yaml:"budget"`

	// GeocodeSuffix is appended to anchors before geocoding, e.g. ", Canada".
	GeocodeSuffix string `yaml:"geocode_suffix"`
}

// BudgetConfig holds provider request budget settings.
type BudgetConfig struct {
	DailyRequestLimit   int64  `yaml:"daily_request_limit"`   // 0 = unlimited
	MonthlyRequestLimit int64  `yaml:"monthly_request_limit"` // 0 = unlimited
	Action              string `yaml:"action"`                // "reject" | "warn" (default)
}

// SearchConfig holds query and ranking settings.
type SearchConfig struct {
	MinLength           int    `yaml:"min_length"`
	DebounceMs          int    `yaml:"debounce_ms"`
	MaxResults          int    `yaml:"max_results"`
	NearbyRadiusM       int    `yaml:"nearby_radius_m"`
	AutocompleteRadiusM int    `yaml:"autocomplete_radius_m"`
	MaxParallel         int    `yaml:"max_parallel"`
	Source              string `yaml:"source"`
}

// SessionsConfig holds server-side session registry settings.
type SessionsConfig struct {
	IdleTTLSec  int `yaml:"idle_ttl_sec"`
	MaxSessions int `yaml:"max_sessions"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML bytes, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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

	if c.Provider.Region == "" {
		c.Provider.Region = "ca"
	}
	if c.Provider.Language == "" {
		c.Provider.Language = "fr"
	}
	if c.Provider.Country == "" {
		c.Provider.Country = "ca"
	}
	if c.Provider.TimeoutSec <= 0 {
		c.Provider.TimeoutSec = 10
	}
	if c.Provider.GeocodeSuffix == "" && strings.EqualFold(c.Provider.Country, "ca") {
		c.Provider.GeocodeSuffix = ", Canada"
	}

	def := domain.DefaultSearchConfig()
	if c.Search.MinLength <= 0 {
		c.Search.MinLength = def.MinLength
	}
	if c.Search.DebounceMs <= 0 {
		c.Search.DebounceMs = int(def.Debounce / time.Millisecond)
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = def.MaxResults
	}
	if c.Search.NearbyRadiusM <= 0 {
		c.Search.NearbyRadiusM = def.NearbyRadiusM
	}
	if c.Search.AutocompleteRadiusM <= 0 {
		c.Search.AutocompleteRadiusM = def.AutocompleteRadiusM
	}
	if c.Search.MaxParallel <= 0 {
		c.Search.MaxParallel = def.MaxParallel
	}
	if c.Search.Source == "" {
		c.Search.Source = string(def.Source)
	}

	if c.Sessions.IdleTTLSec <= 0 {
		c.Sessions.IdleTTLSec = 900
	}
	if c.Sessions.MaxSessions <= 0 {
		c.Sessions.MaxSessions = 10000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Provider.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf(
			"provider.budget.action must be \"warn\" or \"reject\", got %q",
			c.Provider.Budget.Action,
		)
	}
	if c.Provider.Budget.DailyRequestLimit < 0 || c.Provider.Budget.MonthlyRequestLimit < 0 {
		return fmt.Errorf("provider.budget limits must not be negative")
	}
	if c.Search.Source != "" && !domain.Source(c.Search.Source).IsValid() {
		return fmt.Errorf("search.source must be %q or %q, got %q",
			domain.SourceNearby, domain.SourceAutocomplete, c.Search.Source)
	}
	if c.Search.MaxResults > 60 {
		return fmt.Errorf("search.max_results must be at most 60, got %d", c.Search.MaxResults)
	}
	return nil
}

// SearchSettings converts the YAML search section into the domain settings.
func (c *Config) SearchSettings() domain.SearchConfig {
	return domain.SearchConfig{
		MinLength:           c.Search.MinLength,
		Debounce:            time.Duration(c.Search.DebounceMs) * time.Millisecond,
		MaxResults:          c.Search.MaxResults,
		NearbyRadiusM:       c.Search.NearbyRadiusM,
		AutocompleteRadiusM: c.Search.AutocompleteRadiusM,
		MaxParallel:         c.Search.MaxParallel,
		Source:              domain.Source(c.Search.Source),
	}
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to the source file, for tests run from package dirs.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

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
