package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the vecquiz API configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Auth        AuthConfig        `yaml:"auth"`
	Game        GameConfig        `yaml:"game"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Storage     StorageConfig     `yaml:"storage"`
	Logging     LoggingConfig     `yaml:"logging"`
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
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	Standalone       bool     `yaml:"standalone"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// GameConfig holds the quiz rules.
type GameConfig struct {
	TotalRounds  int    `yaml:"total_rounds"`
	MaxScore     int    `yaml:"max_score"`
	TopK         int    `yaml:"top_k"`
	RoundSeconds int    `yaml:"round_seconds"`
	Metric       string `yaml:"metric"`       // cosine, euclidean
	QuerySource  string `yaml:"query_source"` // random, document, embedding
	CatalogFile  string `yaml:"catalog_file"` // empty = built-in seed catalog
	// ReembedCatalog replaces catalog embeddings with provider vectors at startup.
	ReembedCatalog bool `yaml:"reembed_catalog"`
}

// RoundDuration returns the round countdown length.
func (g GameConfig) RoundDuration() time.Duration {
	return time.Duration(g.RoundSeconds) * time.Second
}

// LeaderboardConfig holds the active player window.
type LeaderboardConfig struct {
	ActiveWindowSec int `yaml:"active_window_sec"`
}

// RateLimitConfig holds per-client request limits. Zero rps disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// StorageConfig holds key lifetimes.
type StorageConfig struct {
	GameTTLSec           int `yaml:"game_ttl_sec"`
	EmbeddingCacheTTLSec int `yaml:"embedding_cache_ttl_sec"` // 0 = no expiry
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Providers   map[string]ProviderConfig   `yaml:"providers"`
	Vectorizers map[string]VectorizerConfig `yaml:"vectorizers"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// ProviderConfig holds embedding provider settings.
type ProviderConfig struct {
	APIKey  string       `yaml:"api_key"`
	BaseURL string       `yaml:"base_url"`
	Budget  BudgetConfig `yaml:"budget"`
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Provider            string `yaml:"provider"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// Vectorizer returns the first vectorizer by name order, its provider name and
// provider config. ok is false when embedding is not configured.
func (e EmbeddingConfig) Vectorizer() (VectorizerConfig, string, ProviderConfig, bool) {
	if len(e.Vectorizers) == 0 {
		return VectorizerConfig{}, "", ProviderConfig{}, false
	}
	v := e.Vectorizers[sortedKeys(e.Vectorizers)[0]]
	return v, v.Provider, e.Providers[v.Provider], true
}

// Load reads config/{env}.yaml, or the file named by VECQUIZ_CONFIG when set.
func Load(env string) (Config, error) {
	configPath := os.Getenv("VECQUIZ_CONFIG")
	if configPath == "" {
		configPath = findConfigPath(env)
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, decodes YAML, applies defaults and validates.
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
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Game.TotalRounds <= 0 {
		c.Game.TotalRounds = 5
	}
	if c.Game.MaxScore <= 0 {
		c.Game.MaxScore = 15
	}
	if c.Game.TopK <= 0 {
		c.Game.TopK = 3
	}
	if c.Game.RoundSeconds <= 0 {
		c.Game.RoundSeconds = 60
	}
	if c.Game.Metric == "" {
		c.Game.Metric = "cosine"
	}
	if c.Game.QuerySource == "" {
		c.Game.QuerySource = "random"
	}
	if c.Leaderboard.ActiveWindowSec <= 0 {
		c.Leaderboard.ActiveWindowSec = 300
	}
	if c.Storage.GameTTLSec <= 0 {
		c.Storage.GameTTLSec = 24 * 60 * 60
	}
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		fail("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if !slices.Contains([]string{"valkey", "redis"}, c.Database.Driver) {
		fail("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		fail("database.addrs is required")
	}
	if c.Database.DB < 0 {
		fail("database.db must not be negative, got %d", c.Database.DB)
	}
	for _, name := range sortedKeys(c.Embedding.Providers) {
		if a := c.Embedding.Providers[name].Budget.Action; !slices.Contains([]string{"", "warn", "reject"}, a) {
			fail("embedding.providers.%s.budget.action must be \"warn\" or \"reject\", got %q", name, a)
		}
	}
	for _, name := range sortedKeys(c.Embedding.Vectorizers) {
		p := c.Embedding.Vectorizers[name].Provider
		if _, ok := c.Embedding.Providers[p]; !ok {
			fail("embedding.vectorizers.%s.provider %q is not defined", name, p)
		}
	}

	embedding := len(c.Embedding.Vectorizers) > 0
	if !slices.Contains([]string{"cosine", "euclidean"}, c.Game.Metric) {
		fail("game.metric must be \"cosine\" or \"euclidean\", got %q", c.Game.Metric)
	}
	switch c.Game.QuerySource {
	case "random", "document":
	case "embedding":
		if !embedding {
			fail("game.query_source \"embedding\" requires an embedding vectorizer")
		}
	default:
		fail("game.query_source must be random, document or embedding, got %q", c.Game.QuerySource)
	}
	if c.Game.ReembedCatalog && !embedding {
		fail("game.reembed_catalog requires an embedding vectorizer")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		fail("rate_limit values must not be negative")
	}
	return errors.Join(errs...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to this source file, for tests and `go run` from subdirectories.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
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
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
