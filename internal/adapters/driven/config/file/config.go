package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/sl2676/TexQuery/internal/core/domain"
)

// FileName is the project-local config file name.
const FileName = "texquery.toml"

// Config is the complete, typed configuration.
type Config struct {
	Input       InputConfig       `toml:"input"`
	Chunking    ChunkingConfig    `toml:"chunking"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	LLM         LLMConfig         `toml:"llm"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Logging     LoggingConfig     `toml:"logging"`
	Tracing     TracingConfig     `toml:"tracing"`
	Metrics     MetricsConfig     `toml:"metrics"`
	TTS         TTSConfig         `toml:"tts"`
	Prompts     PromptsConfig     `toml:"prompts"`
}

// InputConfig locates input documents.
type InputConfig struct {
	Dir     string `toml:"dir"`
	Pattern string `toml:"pattern"`
}

// ChunkingConfig bounds chunk and batch sizes.
type ChunkingConfig struct {
	MaxBytes         int `toml:"max_bytes"`
	MetadataMaxBytes int `toml:"metadata_max_bytes"`
	BatchSize        int `toml:"batch_size"`
	Workers          int `toml:"workers"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider          string  `toml:"provider"`
	Model             string  `toml:"model"`
	BaseURL           string  `toml:"base_url"`
	APIKeyEnv         string  `toml:"api_key_env"`
	Dimensions        int     `toml:"dimensions"`
	TimeoutSecs       int     `toml:"timeout_secs"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	MaxRetries        int     `toml:"max_retries"`
}

// LLMConfig selects and tunes the language model.
type LLMConfig struct {
	Provider    string  `toml:"provider"`
	Model       string  `toml:"model"`
	BaseURL     string  `toml:"base_url"`
	APIKeyEnv   string  `toml:"api_key_env"`
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
	TimeoutSecs int     `toml:"timeout_secs"`
}

// VectorStoreConfig selects the vector store backend.
type VectorStoreConfig struct {
	Provider    string       `toml:"provider"`
	Metric      string       `toml:"metric"`
	TopK        int          `toml:"top_k"`
	TimeoutSecs int          `toml:"timeout_secs"`
	SQLite      SQLiteConfig `toml:"sqlite"`
	Qdrant      QdrantConfig `toml:"qdrant"`
}

// SQLiteConfig configures the SQLite vector store.
type SQLiteConfig struct {
	Path string `toml:"path"`
}

// QdrantConfig configures the Qdrant vector store.
type QdrantConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	APIKeyEnv string `toml:"api_key_env"`
	UseTLS    bool   `toml:"use_tls"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
	File   string `toml:"file"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	OTLPEndpoint string  `toml:"otlp_endpoint"`
	SampleRate   float64 `toml:"sample_rate"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// TTSConfig configures the text-to-speech command.
type TTSConfig struct {
	Command []string `toml:"command"`
}

// PromptsConfig locates user-editable prompt files.
type PromptsConfig struct {
	Dir string `toml:"dir"`
}

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderMemory    = "memory"
	ProviderSQLite    = "sqlite"
	ProviderQdrant    = "qdrant"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Input: InputConfig{Dir: "json_output", Pattern: "*.json"},
		Chunking: ChunkingConfig{
			MaxBytes:         40000,
			MetadataMaxBytes: 40960,
			BatchSize:        100,
			Workers:          4,
		},
		Embedding: EmbeddingConfig{
			Provider:    ProviderOpenAI,
			Model:       "text-embedding-ada-002",
			APIKeyEnv:   "OPENAI_API_KEY",
			Dimensions:  1536,
			TimeoutSecs: 60,
			Burst:       1,
		},
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			Model:       "gpt-3.5-turbo",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: domain.DefaultTemperature,
			MaxTokens:   1024,
			TimeoutSecs: 120,
		},
		VectorStore: VectorStoreConfig{
			Provider:    ProviderSQLite,
			Metric:      string(domain.MetricCosine),
			TopK:        5,
			TimeoutSecs: 30,
			Qdrant:      QdrantConfig{Host: "localhost", Port: 6334, APIKeyEnv: "QDRANT_API_KEY"},
		},
		Logging: LoggingConfig{Level: "info", Pretty: true},
		Tracing: TracingConfig{SampleRate: 1.0},
	}
}

// Candidates returns the lookup order for the config file.
// An explicit path, when given, is the only candidate.
func Candidates(explicit string) []string {
	if explicit != "" {
		return []string{explicit}
	}
	paths := []string{FileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".texquery", "config.toml"))
	}
	return paths
}

// Load resolves and decodes the config file over the defaults.
// It returns the path read, or "" when defaults were used. A missing
// explicit path is an error; missing implicit paths are not.
func Load(explicit string) (*Config, string, error) {
	cfg := Default()
	for _, path := range Candidates(explicit) {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) && explicit == "" {
			continue
		}
		if err != nil {
			return nil, "", domain.FatalError("read config", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, "", domain.FatalError("parse config", path, err)
		}
		return cfg, path, nil
	}
	return cfg, "", nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(oneOf(c.Embedding.Provider, ProviderOpenAI, ProviderOllama),
		"embedding.provider %q is not one of openai, ollama", c.Embedding.Provider)
	check(oneOf(c.LLM.Provider, ProviderOpenAI, ProviderAnthropic, ProviderOllama),
		"llm.provider %q is not one of openai, anthropic, ollama", c.LLM.Provider)
	check(oneOf(c.VectorStore.Provider, ProviderMemory, ProviderSQLite, ProviderQdrant),
		"vector_store.provider %q is not one of memory, sqlite, qdrant", c.VectorStore.Provider)

	if _, err := domain.ParseMetric(c.VectorStore.Metric); err != nil {
		errs = append(errs, fmt.Errorf("vector_store.metric: %w", err))
	}
	check(c.Chunking.MaxBytes > 0, "chunking.max_bytes must be positive")
	check(c.Chunking.MetadataMaxBytes > 0, "chunking.metadata_max_bytes must be positive")
	check(c.Chunking.BatchSize > 0 && c.Chunking.BatchSize <= 100, "chunking.batch_size must be in 1..100")
	check(c.Chunking.Workers > 0, "chunking.workers must be positive")
	check(c.Embedding.Dimensions > 0, "embedding.dimensions must be positive")
	check(c.Embedding.MaxRetries >= 0, "embedding.max_retries must not be negative")
	check(c.Embedding.RequestsPerSecond >= 0, "embedding.requests_per_second must not be negative")
	check(c.VectorStore.TopK > 0, "vector_store.top_k must be positive")
	check(c.VectorStore.TimeoutSecs > 0, "vector_store.timeout_secs must be positive")
	check(domain.ValidTemperature(c.LLM.Temperature), "llm.temperature %g: %v", c.LLM.Temperature, domain.ErrTemperatureRange)
	check(c.Tracing.SampleRate >= 0 && c.Tracing.SampleRate <= 1, "tracing.sample_rate must be in [0,1]")

	if len(errs) > 0 {
		return domain.FatalError("validate config", "", errors.Join(errs...))
	}
	return nil
}

// Metric returns the parsed vector metric.
func (c *Config) Metric() domain.Metric {
	m, err := domain.ParseMetric(c.VectorStore.Metric)
	if err != nil {
		return domain.MetricCosine
	}
	return m
}

// EmbeddingTimeout returns the per-call embedding timeout.
func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Embedding.TimeoutSecs) * time.Second
}

// LLMTimeout returns the per-call completion timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSecs) * time.Second
}

// StoreTimeout returns the per-call vector store timeout.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.VectorStore.TimeoutSecs) * time.Second
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// Env reads the environment variable named by key, trimmed.
func Env(key string) string {
	if key == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(key))
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
