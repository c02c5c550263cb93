package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/sl2676/TexQuery/internal/core/domain"
	"github.com/sl2676/TexQuery/internal/core/ports/driven"
	"github.com/sl2676/TexQuery/internal/core/ports/driving"
	"github.com/sl2676/TexQuery/internal/logger"
)

// Ensure AnswerService implements the interfaces.
var (
	_ driving.AnswerService   = (*AnswerService)(nil)
	_ driven.PromptStoreAware = (*AnswerService)(nil)
)

// DefaultTopK is the number of matches retrieved per index.
const DefaultTopK = 5

// AnswerConfig configures retrieval and synthesis.
type AnswerConfig struct {
	// TopK is the number of nearest neighbours requested per index.
	TopK int

	// Dimension validates query embeddings. Zero skips the check.
	Dimension int

	// MaxTokens caps the synthesised reply. Zero means the adapter default.
	MaxTokens int

	// StoreTimeout bounds each vector store call. Zero means DefaultStoreTimeout.
	StoreTimeout time.Duration
}

// AnswerService retrieves context and synthesises answers.
type AnswerService struct {
	embedder driven.EmbeddingService
	store    driven.VectorStore
	llm      driven.LLMService
	prompts  driven.PromptStore
	observer driven.PipelineObserver
	cfg      AnswerConfig
}

// NewAnswerService creates a new answer service.
// The llm parameter is optional (can be nil); Retrieve works without it.
func NewAnswerService(
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	llm driven.LLMService,
	cfg AnswerConfig,
) *AnswerService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	return &AnswerService{
		embedder: embedder,
		store:    store,
		llm:      llm,
		observer: nopObserver{},
		cfg:      cfg,
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (s *AnswerService) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// SetObserver sets the metrics sink.
func (s *AnswerService) SetObserver(o driven.PipelineObserver) {
	if o == nil {
		o = nopObserver{}
	}
	s.observer = o
}

// Indexes lists the indexes that can be targeted.
func (s *AnswerService) Indexes(ctx context.Context) ([]string, error) {
	names, err := s.listIndexes(ctx)
	if err != nil {
		return nil, domain.UpstreamError("list indexes", "", err)
	}
	return names, nil
}

func (s *AnswerService) listIndexes(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return s.store.ListIndexNames(ctx)
}

// Retrieve embeds the query and runs a nearest-neighbour search against
// the target. Under AllIndexes every index is queried in enumeration
// order and the match lists are concatenated; a failing index is logged
// and skipped unless every index fails. Retrieval never writes to the store.
func (s *AnswerService) Retrieve(ctx context.Context, query string, target domain.Target) (domain.QueryResult, error) {
	start := time.Now()
	res, err := s.retrieve(ctx, query, target)
	s.observer.QueryAnswered(outcome(err), time.Since(start))
	return res, err
}

func (s *AnswerService) retrieve(ctx context.Context, query string, target domain.Target) (domain.QueryResult, error) {
	query = strings.TrimSpace(query)
	result := domain.QueryResult{Query: query, Target: target}
	if query == "" {
		return result, domain.InputError("retrieve", "", domain.ErrEmptyQuery)
	}
	if target.IsZero() {
		return result, domain.InputError("retrieve", query, errors.New("no index selected"))
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "answer.retrieve")
	defer span.End()
	span.SetAttributes(attribute.String("texquery.target", target.String()))

	logger.Section("Retrieval")
	vec, err := s.embedder.Embed(ctx, query)
	if err == nil {
		err = ValidateVector(vec, s.cfg.Dimension)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return result, domain.UpstreamError("embed query", query, err)
	}

	if !target.IsAll() {
		matches, err := s.queryIndex(ctx, target.Name(), vec)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return result, err
		}
		result.Matches = matches
		return result, nil
	}

	names, err := s.listIndexes(ctx)
	if err != nil {
		return result, domain.UpstreamError("list indexes", "", err)
	}
	if len(names) == 0 {
		return result, domain.InputError("retrieve", query, domain.ErrNoIndexes)
	}

	var errs []error
	for _, name := range names {
		matches, err := s.queryIndex(ctx, name, vec)
		if err != nil {
			logger.L().Warn().
				Str("index", name).
				Str("query", query).
				Str("error_kind", domain.KindOf(err).String()).
				Err(err).
				Msg("skipping index")
			errs = append(errs, err)
			continue
		}
		result.Matches = append(result.Matches, matches...)
	}
	if len(errs) == len(names) {
		span.SetStatus(codes.Error, "all indexes failed")
		return result, domain.UpstreamError("query all indexes", query, errors.Join(errs...))
	}
	span.SetAttributes(attribute.Int("texquery.matches", len(result.Matches)))
	return result, nil
}

func (s *AnswerService) queryIndex(ctx context.Context, name string, vec []float32) ([]domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	matches, err := s.store.Query(ctx, name, vec, s.cfg.TopK, true)
	if errors.Is(err, domain.ErrIndexNotFound) {
		return nil, domain.InputError("query index", name, err)
	}
	if err != nil {
		return nil, domain.UpstreamError("query index", name, err)
	}
	for i := range matches {
		if matches[i].Index == "" {
			matches[i].Index = name
		}
	}
	logger.Debug("index %s returned %d matches", name, len(matches))
	return matches, nil
}

// Answer retrieves context for the query and asks the language model to
// answer it. Model failures are returned as-is; there is no retry.
func (s *AnswerService) Answer(ctx context.Context, req domain.AnswerRequest) (*domain.Answer, error) {
	start := time.Now()
	ans, err := s.answer(ctx, req)
	s.observer.QueryAnswered(outcome(err), time.Since(start))
	return ans, err
}

func (s *AnswerService) answer(ctx context.Context, req domain.AnswerRequest) (*domain.Answer, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, domain.InputError("answer", "", domain.ErrEmptyQuery)
	}
	if !domain.ValidTemperature(req.Temperature) {
		return nil, domain.InputError("answer", fmt.Sprintf("%g", req.Temperature), domain.ErrTemperatureRange)
	}
	if s.llm == nil {
		return nil, domain.FatalError("answer", "", errors.New("no language model configured"))
	}

	res, err := s.retrieve(ctx, req.Query, req.Target)
	if err != nil {
		return nil, err
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "answer.synthesize")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", s.llm.ModelName()),
		attribute.Float64("llm.temperature", req.Temperature),
	)

	system, user := s.buildPrompts(BuildContext(res.Matches), res.Query)
	text, err := s.llm.Complete(ctx, system, user, driven.CompletionOptions{
		Temperature: req.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, domain.UpstreamError("synthesize", res.Query, err)
	}

	return &domain.Answer{Text: strings.TrimSpace(text), Matches: res.Matches}, nil
}

// buildPrompts loads the synthesis prompts, falling back to the built-in
// defaults when a template is missing or has the wrong placeholders.
func (s *AnswerService) buildPrompts(contextText, query string) (string, string) {
	system := s.loadPrompt(driven.PromptSynthesisSystem, 0)
	user := s.loadPrompt(driven.PromptSynthesisUser, 2)
	return system, fmt.Sprintf(user, contextText, query)
}

func (s *AnswerService) loadPrompt(name string, placeholders int) string {
	def := driven.DefaultPrompts[name]
	if s.prompts == nil {
		return def
	}
	p, err := s.prompts.Load(name)
	if err != nil || strings.TrimSpace(p) == "" {
		return def
	}
	if placeholders > 0 && (strings.Count(p, "%s") != placeholders || strings.Count(p, "%") != placeholders) {
		logger.Warn("prompt %q has wrong placeholders, using default", name)
		return def
	}
	return p
}

// BuildContext renders one block per match, separated by blank lines.
// Empty fields are omitted. Match order is preserved.
func BuildContext(matches []domain.Match) string {
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		md := m.Metadata
		var parts []string
		add := func(label, value string) {
			if strings.TrimSpace(value) != "" {
				parts = append(parts, label+value)
			}
		}
		add("### Source: ", md.SourceFile)
		add("Section Title: ", md.SectionTitle)
		add("Content: ", md.Content)
		add("Authors: ", strings.Join(md.Authors, ", "))
		add("Affiliations: ", strings.Join(md.Affiliations, ", "))
		add("References: ", strings.Join(nonEmpty(md.References), ", "))
		if len(parts) > 0 {
			blocks = append(blocks, strings.Join(parts, "\n"))
		}
	}
	return strings.Join(blocks, "\n\n")
}

func nonEmpty(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func outcome(err error) string {
	if err != nil {
		return driven.OutcomeError
	}
	return driven.OutcomeOK
}
