// Package config loads the per-environment YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the storydex configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Generator GeneratorConfig `yaml:"generator"`
	Index     IndexConfig     `yaml:"index"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	OffDomain OffDomainConfig `yaml:"offdomain"`
	Memo      MemoConfig      `yaml:"memo"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs" validate:"required,min=1,dive,required"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db" validate:"min=0"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds the OpenAI-compatible embedding provider settings.
type EmbeddingConfig struct {
	APIKey              string `yaml:"api_key" validate:"required"`
	BaseURL             string `yaml:"base_url" validate:"omitempty,url"`
	Model               string `yaml:"model" validate:"required"`
	Dimensions          int    `yaml:"dimensions" validate:"min=1"`
	QueryInstruction    string `yaml:"query_instruction"`
	DocumentInstruction string `yaml:"document_instruction"`
	TimeoutSec          int    `yaml:"timeout_sec"`
	MaxRetries          *int   `yaml:"max_retries"`
	CacheEnabled        *bool  `yaml:"cache_enabled"`
}

// GeneratorConfig holds the chat-completion settings for answers and suggestions.
type GeneratorConfig struct {
	APIKey             string   `yaml:"api_key"`
	BaseURL            string   `yaml:"base_url" validate:"omitempty,url"`
	Model              string   `yaml:"model"`
	TimeoutSec         int      `yaml:"timeout_sec"`
	MaxRetries         *int     `yaml:"max_retries"`
	MaxTokens          int      `yaml:"max_tokens"`
	Temperature        float32  `yaml:"temperature" validate:"min=0,max=2"`
	DefaultSuggestions []string `yaml:"default_suggestions"`
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	Namespace       string `yaml:"namespace"`
	TopK            int    `yaml:"top_k"`
	TimeoutSec      int    `yaml:"timeout_sec"`
	MaxRetries      *int   `yaml:"max_retries"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
	BatchSize       int    `yaml:"batch_size"`
	Concurrency     int    `yaml:"concurrency"`
}

// RetrievalConfig holds scoring, confidence and diversity settings.
type RetrievalConfig struct {
	ResultLimit         int      `yaml:"result_limit"`
	MaxPerClient        int      `yaml:"max_per_client"`
	ConfidenceLow       float64  `yaml:"confidence_low"`
	ConfidenceHigh      float64  `yaml:"confidence_high"`
	LowOverlapThreshold float64  `yaml:"low_overlap_threshold" validate:"min=0"`
	SimilarityWeight    *float64 `yaml:"similarity_weight"`
	KeywordWeight       *float64 `yaml:"keyword_weight"`
}

// CorpusConfig locates the curated story file.
type CorpusConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// OffDomainConfig locates the rule file and the rejection audit log.
type OffDomainConfig struct {
	RulesPath string `yaml:"rules_path"`
	AuditPath string `yaml:"audit_path"`
}

// MemoConfig holds the last-shown session memo settings.
type MemoConfig struct {
	TTLMin int `yaml:"ttl_min"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Load reads configuration for env (local, dev, prod) from config/<env>.yaml.
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads, expands, defaults and validates one YAML file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references in data and builds a validated Config.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(expandEnvVars(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads .env files into the process environment without overriding set variables.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

func intPtr(v int) *int           { return &v }
func boolPtr(v bool) *bool        { return &v }
func floatPtr(v float64) *float64 { return &v }

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 10
	}
	if c.Embedding.MaxRetries == nil {
		c.Embedding.MaxRetries = intPtr(2)
	}
	if c.Embedding.CacheEnabled == nil {
		c.Embedding.CacheEnabled = boolPtr(true)
	}

	if c.Generator.APIKey == "" {
		c.Generator.APIKey = c.Embedding.APIKey
	}
	if c.Generator.BaseURL == "" {
		c.Generator.BaseURL = c.Embedding.BaseURL
	}
	if c.Generator.Model == "" {
		c.Generator.Model = "gpt-4o-mini"
	}
	if c.Generator.TimeoutSec <= 0 {
		c.Generator.TimeoutSec = 20
	}
	if c.Generator.MaxRetries == nil {
		c.Generator.MaxRetries = intPtr(1)
	}
	if c.Generator.MaxTokens <= 0 {
		c.Generator.MaxTokens = 600
	}
	if len(c.Generator.DefaultSuggestions) == 0 {
		c.Generator.DefaultSuggestions = []string{
			"How did you modernize a legacy platform?",
			"Tell me about leading a distributed delivery team",
			"What results did you deliver in financial services?",
		}
	}

	if c.Index.Namespace == "" {
		c.Index.Namespace = "default"
	}
	if c.Index.TopK <= 0 {
		c.Index.TopK = 7
	}
	if c.Index.TimeoutSec <= 0 {
		c.Index.TimeoutSec = 10
	}
	if c.Index.MaxRetries == nil {
		c.Index.MaxRetries = intPtr(2)
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Index.BatchSize <= 0 {
		c.Index.BatchSize = 16
	}
	if c.Index.Concurrency <= 0 {
		c.Index.Concurrency = 4
	}

	if c.Retrieval.ResultLimit <= 0 {
		c.Retrieval.ResultLimit = 3
	}
	if c.Retrieval.MaxPerClient == 0 {
		c.Retrieval.MaxPerClient = 2
	}
	if c.Retrieval.ConfidenceLow == 0 && c.Retrieval.ConfidenceHigh == 0 {
		c.Retrieval.ConfidenceLow = 0.25
		c.Retrieval.ConfidenceHigh = 0.40
	}
	if c.Retrieval.LowOverlapThreshold == 0 {
		c.Retrieval.LowOverlapThreshold = 0.15
	}
	if c.Retrieval.SimilarityWeight == nil {
		c.Retrieval.SimilarityWeight = floatPtr(1.0)
	}
	if c.Retrieval.KeywordWeight == nil {
		c.Retrieval.KeywordWeight = floatPtr(0.0)
	}

	if c.Memo.TTLMin <= 0 {
		c.Memo.TTLMin = 30
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for correctness. It expects ApplyDefaults to have run.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %q validation", fieldPath(fe.Namespace()), fe.Tag())
		}
		return fmt.Errorf("validate: %w", err)
	}

	r := c.Retrieval
	if r.ConfidenceLow < 0 || r.ConfidenceHigh > 1 || r.ConfidenceLow >= r.ConfidenceHigh {
		return fmt.Errorf("retrieval.confidence_low (%v) must be below retrieval.confidence_high (%v), both within [0, 1]",
			r.ConfidenceLow, r.ConfidenceHigh)
	}
	if r.SimilarityWeight != nil && *r.SimilarityWeight < 0 {
		return fmt.Errorf("retrieval.similarity_weight must be non-negative")
	}
	if r.KeywordWeight != nil && *r.KeywordWeight < 0 {
		return fmt.Errorf("retrieval.keyword_weight must be non-negative")
	}
	if strings.ContainsAny(c.Index.Namespace, ": \t{}") {
		return fmt.Errorf("index.namespace %q must not contain separators", c.Index.Namespace)
	}
	return nil
}

// fieldPath turns "Config.Embedding.APIKey" into "Embedding.APIKey".
func fieldPath(ns string) string {
	_, rest, ok := strings.Cut(ns, ".")
	if !ok {
		return ns
	}
	return rest
}

// Timeout returns the per-attempt embedding timeout.
func (e EmbeddingConfig) Timeout() time.Duration { return time.Duration(e.TimeoutSec) * time.Second }

// Timeout returns the per-attempt generator timeout.
func (g GeneratorConfig) Timeout() time.Duration { return time.Duration(g.TimeoutSec) * time.Second }

// Timeout returns the per-attempt vector query timeout.
func (i IndexConfig) Timeout() time.Duration { return time.Duration(i.TimeoutSec) * time.Second }

// TTL returns the memo expiry.
func (m MemoConfig) TTL() time.Duration { return time.Duration(m.TTLMin) * time.Minute }

// findConfigPath locates config/<env>.yaml from the working directory or the module root.
func findConfigPath(env string) string {
	filename := env + ".yaml"

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> module root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// envVarRegex matches ${VAR} and ${VAR:-default}.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		name, def, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(name)
		if val == "" && hasDefault {
			val = def
		}
		return []byte(val)
	})
}
