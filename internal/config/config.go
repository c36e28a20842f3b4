package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/vecmigrate/internal/domain"
	"github.com/kailas-cloud/vecmigrate/internal/domain/mapping"
	"github.com/kailas-cloud/vecmigrate/internal/domain/vectorizer"
)

// Index backends.
const (
	BackendAzure = "azure"
	BackendRedis = "redis"
)

// MaxAzurePageSize is the most documents one Azure AI Search query returns.
const MaxAzurePageSize = 1000

// DefaultEnvFile is the dotenv file loaded before the YAML config.
const DefaultEnvFile = "credentials.env"

// Config holds the migrator and trigger configuration.
type Config struct {
	Source      IndexConfig      `yaml:"source"`
	Target      IndexConfig      `yaml:"target"`
	Embedding   EmbeddingConfig  `yaml:"embedding"`
	Vectorizers VectorizerConfig `yaml:"vectorizers"`
	Mapping     MappingConfig    `yaml:"mapping"`
	Migration   MigrationConfig  `yaml:"migration"`
	Cache       CacheConfig      `yaml:"cache"`
	Audit       AuditConfig      `yaml:"audit"`
	HTTP        HTTPConfig       `yaml:"http"`
	Auth        AuthConfig       `yaml:"auth"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Logging     LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds trigger authentication settings.
type AuthConfig struct {
	FunctionKeys []string `yaml:"function_keys"`
	Disabled     bool     `yaml:"disabled"` // explicit opt-out, keys are then ignored
}

// Keys returns the function keys the trigger enforces. Nil means auth is off.
func (a AuthConfig) Keys() []string {
	if a.Disabled {
		return nil
	}
	return a.FunctionKeys
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// IndexConfig addresses one search index.
type IndexConfig struct {
	Backend    string      `yaml:"backend"` // azure, redis (default: azure)
	Endpoint   string      `yaml:"endpoint"`
	APIKey     string      `yaml:"api_key"` // empty = Entra ID token (azure)
	APIVersion string      `yaml:"api_version"`
	Index      string      `yaml:"index"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis/Valkey connection settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding service settings.
type EmbeddingConfig struct {
	Variant    domain.EmbeddingVariant `yaml:"variant"`
	Endpoint   string                  `yaml:"endpoint"`
	APIKey     string                  `yaml:"api_key"`
	APIVersion string                  `yaml:"api_version"`
	Model      string                  `yaml:"model"`
	Dimensions int                     `yaml:"dimensions"`
	TimeoutSec int                     `yaml:"timeout_sec"`
}

// VectorizerConfig points at the vector-search definitions and their secrets.
type VectorizerConfig struct {
	DefinitionsFile string            `yaml:"definitions_file"`
	APIKeys         map[string]string `yaml:"api_keys"` // vectorizer kind -> secret
}

// MappingConfig points at the vector mapping document.
type MappingConfig struct {
	File string `yaml:"file"`
}

// MigrationConfig holds paging and verification settings.
type MigrationConfig struct {
	PageSize   int  `yaml:"page_size"`
	MaxRecords int  `yaml:"max_records"` // fallback mode cap
	SettleSec  int  `yaml:"settle_sec"`  // 0 = default, negative = no delay
	SkipVerify bool `yaml:"skip_verify"`
}

// SettleDelay returns the pause before the verification count.
func (m MigrationConfig) SettleDelay() time.Duration {
	if m.SettleSec <= 0 {
		return 0
	}
	return time.Duration(m.SettleSec) * time.Second
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Enabled bool        `yaml:"enabled"`
	Redis   RedisConfig `yaml:"redis"`
}

// AuditConfig holds the audit trail location.
type AuditConfig struct {
	Path string `yaml:"path"` // empty disables the audit trail
}

// MetricsConfig holds the migrator's metrics endpoint.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"` // empty disables
}

// Options tune Load.
type Options struct {
	Env     string // selects config/<env>.yaml
	Path    string // explicit config path, overrides Env
	EnvFile string // dotenv file, DefaultEnvFile when empty
}

// Load reads the dotenv file, then the YAML config, then applies defaults.
// Validation is left to the caller, which knows which binary it serves.
func Load(opts Options) (Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	configPath := opts.Path
	if configPath == "" {
		configPath = findConfigPath(opts.Env)
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse expands ${VAR} references in data, decodes it and applies defaults.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()
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
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 7071
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Source.Backend == "" {
		c.Source.Backend = BackendAzure
	}
	if c.Source.APIVersion == "" {
		c.Source.APIVersion = "2024-07-01"
	}
	applyRedisDefaults(&c.Source.Redis)

	// The target reuses the source service unless told otherwise.
	if c.Target.Backend == "" {
		c.Target.Backend = c.Source.Backend
	}
	if c.Target.Endpoint == "" {
		c.Target.Endpoint = c.Source.Endpoint
	}
	if c.Target.APIKey == "" {
		c.Target.APIKey = c.Source.APIKey
	}
	if c.Target.APIVersion == "" {
		c.Target.APIVersion = c.Source.APIVersion
	}
	if len(c.Target.Redis.Addrs) == 0 {
		c.Target.Redis.Addrs = c.Source.Redis.Addrs
		if c.Target.Redis.Password == "" {
			c.Target.Redis.Password = c.Source.Redis.Password
		}
	}
	applyRedisDefaults(&c.Target.Redis)

	if c.Embedding.Variant == "" {
		c.Embedding.Variant = domain.VariantOpenAI
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}

	if c.Vectorizers.DefinitionsFile == "" {
		c.Vectorizers.DefinitionsFile = "vectors.json"
	}
	if c.Mapping.File == "" {
		c.Mapping.File = "vector_mapping.json"
	}

	if c.Migration.PageSize <= 0 {
		c.Migration.PageSize = 1000
	}
	if c.Migration.MaxRecords <= 0 {
		c.Migration.MaxRecords = 100000
	}
	if c.Migration.SettleSec == 0 {
		c.Migration.SettleSec = 10
	}

	if len(c.Cache.Redis.Addrs) == 0 && c.Target.Backend == BackendRedis {
		c.Cache.Redis = c.Target.Redis
	}
	applyRedisDefaults(&c.Cache.Redis)
}

func applyRedisDefaults(r *RedisConfig) {
	if r.KeyPrefix == "" {
		r.KeyPrefix = "vecmigrate:"
	}
	if r.ReadinessTimeout <= 0 {
		r.ReadinessTimeout = 10
	}
}

// ValidateMigration checks everything the migrator needs before it touches any index.
func (c *Config) ValidateMigration() error {
	if err := c.ValidateIndexes(); err != nil {
		return err
	}
	if err := c.Embedding.validate(); err != nil {
		return err
	}
	if c.Source.Backend == BackendAzure && c.Migration.PageSize > MaxAzurePageSize {
		return invalidf("migration.page_size (%d) exceeds the azure search page limit (%d)",
			c.Migration.PageSize, MaxAzurePageSize)
	}
	if c.Migration.MaxRecords < c.Migration.PageSize {
		return invalidf("migration.max_records (%d) must not be smaller than migration.page_size (%d)",
			c.Migration.MaxRecords, c.Migration.PageSize)
	}
	if c.Cache.Enabled && len(c.Cache.Redis.Addrs) == 0 {
		return invalidf("cache.redis.addrs is required when cache is enabled")
	}
	return nil
}

// ValidateIndexes checks the source and target index settings only.
func (c *Config) ValidateIndexes() error {
	if err := c.Source.validate("source"); err != nil {
		return err
	}
	return c.Target.validate("target")
}

// ValidateTrigger checks the settings of the embedding trigger service.
func (c *Config) ValidateTrigger() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return invalidf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if err := c.Embedding.validate(); err != nil {
		return err
	}
	if c.Auth.Disabled {
		return nil
	}
	if len(c.Auth.FunctionKeys) == 0 {
		return invalidf("auth.function_keys is required unless auth.disabled is set")
	}
	for i, k := range c.Auth.FunctionKeys {
		if strings.TrimSpace(k) == "" {
			return invalidf("auth.function_keys[%d] is empty", i)
		}
	}
	return nil
}

func (ic IndexConfig) validate(section string) error {
	switch ic.Backend {
	case BackendAzure:
		if ic.Endpoint == "" {
			return invalidf("%s.endpoint is required", section)
		}
	case BackendRedis:
		if len(ic.Redis.Addrs) == 0 {
			return invalidf("%s.redis.addrs is required", section)
		}
	default:
		return invalidf("%s.backend must be %q or %q, got %q", section, BackendAzure, BackendRedis, ic.Backend)
	}
	if ic.Index == "" {
		return invalidf("%s.index is required", section)
	}
	return nil
}

func (e EmbeddingConfig) validate() error {
	if !e.Variant.Valid() {
		return invalidf("embedding.variant must be one of openai, azure_openai, ollama, got %q", e.Variant)
	}
	if e.Model == "" {
		return invalidf("embedding.model is required")
	}
	if e.Variant == domain.VariantOllama {
		return nil
	}
	if e.Endpoint == "" {
		return invalidf("embedding.endpoint is required")
	}
	if e.APIKey == "" {
		return invalidf("embedding.api_key is required")
	}
	if e.Variant == domain.VariantAzureOpenAI && e.APIVersion == "" {
		return invalidf("embedding.api_version is required for variant azure_openai")
	}
	return nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// LoadVectorSearch reads the vector-search definitions and injects vectorizer credentials.
func LoadVectorSearch(path string, apiKeys map[string]string) (*vectorizer.VectorSearch, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read vector search definitions %s: %w", path, err)
	}
	vs, err := vectorizer.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := vs.InjectCredentials(apiKeys); err != nil {
		return nil, fmt.Errorf("vectorizer credentials: %w", err)
	}
	return vs, nil
}

// LoadVectorMapping reads and validates the vector mapping document.
func LoadVectorMapping(path string) (mapping.Mapping, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read vector mapping %s: %w", path, err)
	}
	var m mapping.Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidConfig, path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	if env == "" {
		env = GetEnv()
	}
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
