package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents the application configuration
type Config struct {
	Warehouse WarehouseConfig `json:"warehouse" envPrefix:"ANALYST_"`
	LLM       LLMConfig       `json:"llm"       envPrefix:"ANALYST_"`
	Retrieval RetrievalConfig `json:"retrieval" envPrefix:"ANALYST_"`
	Synthesis SynthesisConfig `json:"synthesis" envPrefix:"ANALYST_"`
	History   HistoryConfig   `json:"history"   envPrefix:"ANALYST_"`
	Logging   LoggingConfig   `json:"logging"   envPrefix:"ANALYST_"`
}

// WarehouseConfig describes the target database the generated SQL runs against.
type WarehouseConfig struct {
	Host         string `json:"host"          env:"WAREHOUSE_HOST"     envDefault:"localhost"`
	Port         int    `json:"port"          env:"WAREHOUSE_PORT"     envDefault:"5439"`
	Database     string `json:"database"      env:"WAREHOUSE_DATABASE" envDefault:"dev"`
	User         string `json:"user"          env:"WAREHOUSE_USER"`
	Password     string `json:"password"      env:"WAREHOUSE_PASSWORD"`
	SSLMode      string `json:"ssl_mode"      env:"WAREHOUSE_SSL_MODE" envDefault:"require"`
	Schema       string `json:"schema"        env:"WAREHOUSE_SCHEMA"   envDefault:"public"`
	QueryTimeout string `json:"query_timeout" env:"WAREHOUSE_QUERY_TIMEOUT" envDefault:"60s"`
	DSN          string `json:"dsn"           env:"WAREHOUSE_DSN"` // overrides host/port/... when set
}

// LLMConfig represents language model and embedding provider configuration
type LLMConfig struct {
	Provider      string `json:"provider"        env:"LLM_PROVIDER"        envDefault:"openai"` // openai, ollama, gemini
	Model         string `json:"model"           env:"LLM_MODEL"           envDefault:"gpt-4o-mini"`
	EmbedModel    string `json:"embed_model"     env:"LLM_EMBED_MODEL"     envDefault:"text-embedding-3-small"`
	APIKey        string `json:"api_key"         env:"LLM_API_KEY"`
	BaseURL       string `json:"base_url"        env:"LLM_BASE_URL"`
	EmbedCacheSize int   `json:"embed_cache_size" env:"LLM_EMBED_CACHE_SIZE" envDefault:"2048"`
	EmbedCacheTTL string `json:"embed_cache_ttl" env:"LLM_EMBED_CACHE_TTL" envDefault:"1h"`
}

// RetrievalConfig tunes how schema context is selected for a question
type RetrievalConfig struct {
	TopK              int     `json:"top_k"                env:"RETRIEVAL_TOP_K"                envDefault:"8"`
	DistanceRatio     float64 `json:"distance_ratio"       env:"RETRIEVAL_DISTANCE_RATIO"       envDefault:"1.15"`
	SmallSchemaTables int     `json:"small_schema_tables"  env:"RETRIEVAL_SMALL_SCHEMA_TABLES"  envDefault:"5"`
	ColumnPruneAbove  int     `json:"column_prune_above"   env:"RETRIEVAL_COLUMN_PRUNE_ABOVE"   envDefault:"8"`
	ColumnKeepMin     int     `json:"column_keep_min"      env:"RETRIEVAL_COLUMN_KEEP_MIN"      envDefault:"5"`
	ColumnKeepMax     int     `json:"column_keep_max"      env:"RETRIEVAL_COLUMN_KEEP_MAX"      envDefault:"10"`
	ExampleTopK       int     `json:"example_top_k"        env:"RETRIEVAL_EXAMPLE_TOP_K"        envDefault:"3"`
	RelationshipsFile string  `json:"relationships_file"   env:"RETRIEVAL_RELATIONSHIPS_FILE"   envDefault:"~/.config/analyst/relationships.yaml"`
	ExamplesFile      string  `json:"examples_file"        env:"RETRIEVAL_EXAMPLES_FILE"        envDefault:"~/.config/analyst/examples.yaml"`
}

// SynthesisConfig tunes SQL generation and validation
type SynthesisConfig struct {
	MaxAttempts int     `json:"max_attempts" env:"SYNTHESIS_MAX_ATTEMPTS" envDefault:"2"`
	Temperature float64 `json:"temperature"  env:"SYNTHESIS_TEMPERATURE"  envDefault:"0.1"`
	MaxTokens   int     `json:"max_tokens"   env:"SYNTHESIS_MAX_TOKENS"   envDefault:"2048"`
}

// HistoryConfig represents the local saved-query store
type HistoryConfig struct {
	Path string `json:"path" env:"HISTORY_PATH" envDefault:"~/.config/analyst/history.db"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"  envDefault:"info"`   // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT" envDefault:"text"`   // text, json
	Output string `json:"output" env:"LOG_OUTPUT" envDefault:"stderr"` // stdout, stderr, file
	File   string `json:"file"   env:"LOG_FILE"   envDefault:"~/.config/analyst/logs/analyst.log"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	config := &Config{}

	// Load from config file if it exists
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Apply environment variable overrides using env library (also sets defaults)
	if err := env.ParseWithOptions(config, env.Options{
		Prefix: "ANALYST_",
	}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if flagOverrides != nil {
		applyFlagOverrides(config, flagOverrides)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) {
	for key, value := range overrides {
		switch key {
		case "schema":
			if str, ok := value.(string); ok && str != "" {
				config.Warehouse.Schema = str
			}
		case "dsn":
			if str, ok := value.(string); ok && str != "" {
				config.Warehouse.DSN = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "provider":
			if str, ok := value.(string); ok && str != "" {
				config.LLM.Provider = str
			}
		}
	}
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := range s.NumField() {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	validProviders := map[string]bool{
		"openai": true, "ollama": true, "gemini": true,
	}
	if !validProviders[strings.ToLower(config.LLM.Provider)] {
		return fmt.Errorf(
			"invalid llm provider: %s (must be openai, ollama, or gemini)",
			config.LLM.Provider,
		)
	}

	if _, err := time.ParseDuration(config.Warehouse.QueryTimeout); err != nil {
		return fmt.Errorf("invalid warehouse query timeout: %s", config.Warehouse.QueryTimeout)
	}

	if _, err := time.ParseDuration(config.LLM.EmbedCacheTTL); err != nil {
		return fmt.Errorf("invalid embed cache TTL: %s", config.LLM.EmbedCacheTTL)
	}

	if config.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top_k must be positive: %d", config.Retrieval.TopK)
	}

	if config.Retrieval.DistanceRatio < 1.0 {
		return fmt.Errorf("retrieval distance_ratio must be >= 1.0: %f", config.Retrieval.DistanceRatio)
	}

	if config.Synthesis.MaxAttempts < 1 {
		return fmt.Errorf("synthesis max_attempts must be at least 1: %d", config.Synthesis.MaxAttempts)
	}

	return nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv("ANALYST_CONFIG"); configPath != "" {
		return ExpandPath(configPath)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(homeDir, ".config", "analyst", "config.json")
}

// ExpandPath expands ~ to home directory in file paths
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.History.Path = ExpandPath(c.History.Path)
	c.Logging.File = ExpandPath(c.Logging.File)
	c.Retrieval.RelationshipsFile = ExpandPath(c.Retrieval.RelationshipsFile)
	c.Retrieval.ExamplesFile = ExpandPath(c.Retrieval.ExamplesFile)
}

// ConnString builds the lib/pq connection string for the warehouse.
// Redshift speaks the postgres wire protocol, so the postgres driver applies.
func (c *WarehouseConfig) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}

	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.User, c.Password, c.SSLMode)
}

// QueryTimeoutDuration returns the parsed query timeout
func (c *WarehouseConfig) QueryTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.QueryTimeout)
	if err != nil {
		return 60 * time.Second
	}

	return d
}

// EmbedCacheTTLDuration returns the parsed embedding cache TTL
func (c *LLMConfig) EmbedCacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.EmbedCacheTTL)
	if err != nil {
		return time.Hour
	}

	return d
}
