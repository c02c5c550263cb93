// Package ai provides factory functions for creating AI service adapters
// and the vector store from configuration.
package ai

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/sl2676/TexQuery/internal/adapters/driven/config/file"
	ollamaembed "github.com/sl2676/TexQuery/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/sl2676/TexQuery/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/sl2676/TexQuery/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/sl2676/TexQuery/internal/adapters/driven/llm/ollama"
	openaillm "github.com/sl2676/TexQuery/internal/adapters/driven/llm/openai"
	"github.com/sl2676/TexQuery/internal/adapters/driven/vectorstore/memory"
	"github.com/sl2676/TexQuery/internal/adapters/driven/vectorstore/qdrant"
	"github.com/sl2676/TexQuery/internal/adapters/driven/vectorstore/sqlite"
	"github.com/sl2676/TexQuery/internal/core/domain"
	"github.com/sl2676/TexQuery/internal/core/ports/driven"
)

// Services holds the driven adapters built from one configuration.
type Services struct {
	Embedding   driven.EmbeddingService
	LLM         driven.LLMService
	VectorStore driven.VectorStore
}

// Close releases all resources held by Services.
func (s *Services) Close() error {
	var errs []error
	if s.Embedding != nil {
		errs = append(errs, s.Embedding.Close())
	}
	if s.LLM != nil {
		errs = append(errs, s.LLM.Close())
	}
	if s.VectorStore != nil {
		errs = append(errs, s.VectorStore.Close())
	}
	return errors.Join(errs...)
}

// CreateEmbeddingService creates the configured embedding service,
// wrapped with rate limiting and retry.
func CreateEmbeddingService(cfg *file.Config) (driven.EmbeddingService, error) {
	ec := cfg.Embedding

	var svc driven.EmbeddingService
	switch ec.Provider {
	case file.ProviderOllama:
		svc = ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    ec.BaseURL,
			Model:      ec.Model,
			Timeout:    cfg.EmbeddingTimeout(),
			Dimensions: ec.Dimensions,
		})

	case file.ProviderOpenAI:
		key, err := apiKey("embedding", ec.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		svc, err = openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     key,
			BaseURL:    ec.BaseURL,
			Model:      ec.Model,
			Timeout:    cfg.EmbeddingTimeout(),
			Dimensions: ec.Dimensions,
		})
		if err != nil {
			return nil, domain.FatalError("create embedding service", ec.Provider, err)
		}

	case file.ProviderAnthropic:
		return nil, domain.FatalError("create embedding service", ec.Provider,
			errors.New("anthropic does not support embeddings, use ollama or openai"))

	default:
		return nil, domain.FatalError("create embedding service", ec.Provider,
			fmt.Errorf("unsupported embedding provider: %s", ec.Provider))
	}

	svc = WithRateLimit(svc, ec.RequestsPerSecond, ec.Burst)
	return WithRetry(svc, RetryConfig{MaxRetries: ec.MaxRetries}), nil
}

// CreateLLMService creates the configured language model service.
func CreateLLMService(cfg *file.Config) (driven.LLMService, error) {
	lc := cfg.LLM

	switch lc.Provider {
	case file.ProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: lc.BaseURL,
			Model:   lc.Model,
			Timeout: cfg.LLMTimeout(),
		}), nil

	case file.ProviderOpenAI:
		key, err := apiKey("llm", lc.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		svc, err := openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  key,
			BaseURL: lc.BaseURL,
			Model:   lc.Model,
			Timeout: cfg.LLMTimeout(),
		})
		if err != nil {
			return nil, domain.FatalError("create llm service", lc.Provider, err)
		}
		return svc, nil

	case file.ProviderAnthropic:
		key, err := apiKey("llm", lc.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		svc, err := anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  key,
			BaseURL: lc.BaseURL,
			Model:   lc.Model,
			Timeout: cfg.LLMTimeout(),
		})
		if err != nil {
			return nil, domain.FatalError("create llm service", lc.Provider, err)
		}
		return svc, nil

	default:
		return nil, domain.FatalError("create llm service", lc.Provider,
			fmt.Errorf("unsupported LLM provider: %s", lc.Provider))
	}
}

// CreateVectorStore opens the configured vector store.
func CreateVectorStore(cfg *file.Config) (driven.VectorStore, error) {
	vc := cfg.VectorStore

	switch vc.Provider {
	case file.ProviderMemory:
		return memory.NewStore(), nil

	case file.ProviderSQLite:
		store, err := sqlite.NewStore(vc.SQLite.Path)
		if err != nil {
			return nil, domain.FatalError("open vector store", vc.Provider, err)
		}
		return store, nil

	case file.ProviderQdrant:
		host := vc.Qdrant.Host
		if host == "" {
			host = "localhost"
		}
		port := vc.Qdrant.Port
		if port == 0 {
			port = 6334
		}
		store, err := qdrant.NewStore(qdrant.Config{
			Addr:   net.JoinHostPort(host, strconv.Itoa(port)),
			APIKey: file.Env(vc.Qdrant.APIKeyEnv),
			UseTLS: vc.Qdrant.UseTLS,
		})
		if err != nil {
			return nil, domain.FatalError("open vector store", vc.Provider, err)
		}
		return store, nil

	default:
		return nil, domain.FatalError("open vector store", vc.Provider,
			fmt.Errorf("unsupported vector store provider: %s", vc.Provider))
	}
}

// CreateServices builds every driven adapter. The llm flag skips the
// language model for retrieval-only commands. On error, anything already
// opened is closed.
func CreateServices(cfg *file.Config, llm bool) (*Services, error) {
	s := &Services{}
	var err error
	if s.Embedding, err = CreateEmbeddingService(cfg); err != nil {
		return nil, err
	}
	if llm {
		if s.LLM, err = CreateLLMService(cfg); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	if s.VectorStore, err = CreateVectorStore(cfg); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// apiKey reads a credential from the named environment variable.
// A missing key is fatal.
func apiKey(component, envVar string) (string, error) {
	if envVar == "" {
		return "", domain.FatalError("read credentials", component, errors.New("api_key_env is not set"))
	}
	key := file.Env(envVar)
	if key == "" {
		return "", domain.FatalError("read credentials", component,
			fmt.Errorf("environment variable %s is empty", envVar))
	}
	return key, nil
}
