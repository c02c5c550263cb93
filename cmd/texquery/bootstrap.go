package main

import (
	"context"
	"errors"
	"time"

	"github.com/sl2676/TexQuery/internal/adapters/driven/ai"
	"github.com/sl2676/TexQuery/internal/adapters/driven/config/file"
	"github.com/sl2676/TexQuery/internal/adapters/driven/source/filesystem"
	"github.com/sl2676/TexQuery/internal/adapters/driven/speech"
	"github.com/sl2676/TexQuery/internal/adapters/driving/cli"
	"github.com/sl2676/TexQuery/internal/core/domain"
	"github.com/sl2676/TexQuery/internal/core/ports/driving"
	"github.com/sl2676/TexQuery/internal/core/services"
	"github.com/sl2676/TexQuery/internal/logger"
	"github.com/sl2676/TexQuery/internal/observability"
	"github.com/sl2676/TexQuery/internal/postprocessors/chunker"
)

const shutdownTimeout = 5 * time.Second

// bootstrap loads configuration and wires every adapter into the services
// the commands use.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	cfg, path, err := file.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	closeLog, err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		File:   cfg.Logging.File,
	})
	if err != nil {
		return nil, domain.FatalError("init logger", cfg.Logging.File, err)
	}
	logger.SetVerbose(opts.Verbose)
	if path != "" {
		logger.Debug("loaded config from %s", path)
	}

	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:    "texquery",
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		_ = closeLog()
		return nil, domain.FatalError("init tracing", cfg.Tracing.OTLPEndpoint, err)
	}

	svc, err := wire(cfg, opts.NeedsLLM)
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	closeAdapters := svc.Close
	svc.Close = func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(closeAdapters(), tp.Shutdown(shutdownCtx), closeLog())
	}
	return svc, nil
}

// wire builds the services for cfg. The language model is only
// created when needsLLM is set; retrieval-only commands run without it.
func wire(cfg *file.Config, needsLLM bool) (*cli.Services, error) {
	adapters, err := ai.CreateServices(cfg, needsLLM)
	if err != nil {
		return nil, err
	}

	source, err := filesystem.New(cfg.Input.Dir, cfg.Input.Pattern)
	if err != nil {
		_ = adapters.Close()
		return nil, err
	}

	metrics := observability.NewMetrics()

	ingest := services.NewIngestService(
		adapters.Embedding,
		adapters.VectorStore,
		chunker.New(chunker.WithMaxBytes(cfg.Chunking.MaxBytes)),
		source,
		services.IngestConfig{
			Dimension:        cfg.Embedding.Dimensions,
			Metric:           cfg.Metric(),
			MetadataMaxBytes: cfg.Chunking.MetadataMaxBytes,
			BatchSize:        cfg.Chunking.BatchSize,
			Workers:          cfg.Chunking.Workers,
			StoreTimeout:     cfg.StoreTimeout(),
		},
	)
	ingest.SetObserver(metrics)

	answers := services.NewAnswerService(adapters.Embedding, adapters.VectorStore, adapters.LLM, services.AnswerConfig{
		TopK:         cfg.VectorStore.TopK,
		Dimension:    cfg.Embedding.Dimensions,
		MaxTokens:    cfg.LLM.MaxTokens,
		StoreTimeout: cfg.StoreTimeout(),
	})
	answers.SetObserver(metrics)
	if prompts, err := file.NewPromptStore(cfg.Prompts.Dir); err != nil {
		logger.Warn("using built-in prompts: %v", err)
	} else {
		answers.SetPromptStore(prompts)
	}

	speaker := speech.New(cfg.TTS.Command)
	temperature := cfg.LLM.Temperature

	return &cli.Services{
		Ingest:  ingest,
		Answers: answers,
		Indexes: services.NewIndexService(adapters.VectorStore),
		Source:  source,
		RefFor:  filesystem.RefFor,
		NewSession: func() driving.Session {
			return services.NewSessionService(answers, speaker, temperature)
		},
		Health: func(ctx context.Context) ([]cli.HealthCheck, error) {
			checks, err := adapters.Validate(ctx)
			out := make([]cli.HealthCheck, 0, len(checks))
			for _, c := range checks {
				out = append(out, cli.HealthCheck{Component: c.Component, Model: c.Model, Err: c.Err})
			}
			return out, err
		},
		Metrics:     metrics,
		MetricsAddr: cfg.Metrics.Addr,
		Temperature: temperature,
		Close:       adapters.Close,
	}, nil
}
