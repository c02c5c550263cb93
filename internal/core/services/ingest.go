package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/sl2676/TexQuery/internal/core/domain"
	"github.com/sl2676/TexQuery/internal/core/ports/driven"
	"github.com/sl2676/TexQuery/internal/core/ports/driving"
	"github.com/sl2676/TexQuery/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

const tracerName = "github.com/sl2676/TexQuery/internal/core/services"

// Default ingestion settings.
const (
	DefaultDimension = 1536
	DefaultBatchSize = driven.MaxUpsertBatch
	DefaultWorkers   = 4

	// DefaultStoreTimeout bounds each vector store call.
	DefaultStoreTimeout = 30 * time.Second
)

// IngestConfig configures the ingestion pipeline.
type IngestConfig struct {
	// Dimension is the vector size indexes are created with and
	// embeddings are validated against.
	Dimension int

	// Metric is the distance function for new indexes.
	Metric domain.Metric

	// MetadataMaxBytes is the serialised metadata ceiling per record.
	MetadataMaxBytes int

	// BatchSize is the number of records per upsert call (at most 100).
	BatchSize int

	// Workers bounds concurrent embedding calls.
	Workers int

	// StoreTimeout bounds each vector store call, including the detached
	// batch upsert. Zero means DefaultStoreTimeout.
	StoreTimeout time.Duration
}

// DefaultIngestConfig returns the reference settings.
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		Dimension:        DefaultDimension,
		Metric:           domain.MetricCosine,
		MetadataMaxBytes: DefaultMetadataMaxBytes,
		BatchSize:        DefaultBatchSize,
		Workers:          DefaultWorkers,
		StoreTimeout:     DefaultStoreTimeout,
	}
}

func (c IngestConfig) withDefaults() IngestConfig {
	d := DefaultIngestConfig()
	if c.Dimension <= 0 {
		c.Dimension = d.Dimension
	}
	if c.Metric == "" {
		c.Metric = d.Metric
	}
	if c.BatchSize <= 0 || c.BatchSize > driven.MaxUpsertBatch {
		c.BatchSize = d.BatchSize
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = d.StoreTimeout
	}
	return c
}

// IngestService turns documents into stored vector records.
type IngestService struct {
	embedder driven.EmbeddingService
	store    driven.VectorStore
	chunker  driven.Chunker
	source   driven.DocumentSource
	observer driven.PipelineObserver
	cfg      IngestConfig
	newRunID func() string
}

// NewIngestService creates a new ingestion service.
// The source parameter is optional (can be nil); IngestRef and IngestAll need it.
func NewIngestService(
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	chunker driven.Chunker,
	source driven.DocumentSource,
	cfg IngestConfig,
) *IngestService {
	return &IngestService{
		embedder: embedder,
		store:    store,
		chunker:  chunker,
		source:   source,
		observer: nopObserver{},
		cfg:      cfg.withDefaults(),
		newRunID: uuid.NewString,
	}
}

// SetObserver sets the metrics sink.
func (s *IngestService) SetObserver(o driven.PipelineObserver) {
	if o == nil {
		o = nopObserver{}
	}
	s.observer = o
}

// candidate is a chunk that passed the metadata ceiling and awaits embedding.
type candidate struct {
	chunk    domain.Chunk
	metadata domain.Metadata
}

// Ingest stores every section of doc in the index derived from sourceID.
// The document is normalised and chunked before any remote call, so a
// malformed document fails early. Chunk-level failures are logged and
// counted; only index resolution failures and cancellation are returned.
func (s *IngestService) Ingest(ctx context.Context, doc *domain.Document, sourceID string) (domain.IngestReport, error) {
	report := domain.IngestReport{
		RunID:     s.newRunID(),
		Source:    sourceID,
		IndexName: domain.IndexNameFor(sourceID),
	}
	if doc == nil {
		return report, domain.InputError("ingest", sourceID, domain.ErrMalformedDocument)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "ingest.document")
	defer span.End()
	span.SetAttributes(
		attribute.String("texquery.source", sourceID),
		attribute.String("texquery.index", report.IndexName),
		attribute.String("texquery.run_id", report.RunID),
	)

	log := logger.L().With().
		Str("run_id", report.RunID).
		Str("source", sourceID).
		Str("index", report.IndexName).
		Logger()

	candidates, err := s.prepare(ctx, doc, sourceID, &report)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}

	created, err := s.ensureIndex(ctx, report.IndexName)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}
	report.IndexCreated = created
	if created {
		log.Info().Int("dimension", s.cfg.Dimension).Str("metric", string(s.cfg.Metric)).Msg("created index")
	}

	staged := make([]domain.IndexRecord, 0, s.cfg.BatchSize)
	flush := func() {
		if len(staged) == 0 {
			return
		}
		s.flush(ctx, report.IndexName, staged, &report)
		staged = make([]domain.IndexRecord, 0, s.cfg.BatchSize)
	}

	for start := 0; start < len(candidates); start += s.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			flush()
			report.Failed += len(candidates) - start
			return report, err
		}

		end := min(start+s.cfg.BatchSize, len(candidates))
		records := s.embedWindow(ctx, candidates[start:end])

		// Single writer: only this goroutine touches staged.
		for _, rec := range records {
			if rec == nil {
				report.Failed++
				s.observer.ChunkProcessed(driven.OutcomeFailed)
				continue
			}
			staged = append(staged, *rec)
			if len(staged) == s.cfg.BatchSize {
				flush()
			}
		}
	}
	flush()

	span.SetAttributes(attribute.Int("texquery.vector_count", report.VectorCount))
	log.Info().
		Int("stored", report.VectorCount).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msgf("stored %d vectors from %s in index %q", report.VectorCount, sourceID, report.IndexName)
	return report, nil
}

// prepare normalises and chunks every section and applies the metadata ceiling.
func (s *IngestService) prepare(
	ctx context.Context, doc *domain.Document, sourceID string, report *domain.IngestReport,
) ([]candidate, error) {
	dc := NewDocumentContext(doc)

	var candidates []candidate
	for i := range doc.Content {
		sec := &doc.Content[i]
		sectionIndex := i + 1

		text, err := SectionText(sec)
		if err != nil {
			return nil, domain.InputError("normalise section", fmt.Sprintf("%s section %d", sourceID, sectionIndex), err)
		}

		chunks, err := s.chunker.Chunk(ctx, sourceID, sectionIndex, text)
		if err != nil {
			return nil, fmt.Errorf("chunk section %d: %w", sectionIndex, err)
		}
		report.Chunks += len(chunks)

		for _, c := range chunks {
			md := BuildMetadata(dc, sec, c)
			if err := CheckMetadataSize(md, c.ID, s.cfg.MetadataMaxBytes); err != nil {
				report.Skipped++
				s.observer.ChunkProcessed(driven.OutcomeSkipped)
				logger.L().Warn().
					Str("source", sourceID).
					Str("chunk_id", c.ID).
					Str("error_kind", domain.KindOf(err).String()).
					Err(err).
					Msg("metadata exceeds limit after splitting, skipping chunk")
				continue
			}
			candidates = append(candidates, candidate{chunk: c, metadata: md})
		}
	}
	return candidates, nil
}

// ensureIndex checks for the index and creates it when absent.
// Losing a creation race to a concurrent run counts as success.
func (s *IngestService) ensureIndex(ctx context.Context, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	names, err := s.store.ListIndexNames(ctx)
	if err != nil {
		return false, domain.UpstreamError("list indexes", name, err)
	}
	if slices.Contains(names, name) {
		return false, nil
	}

	created, err := s.store.CreateIndexIfAbsent(ctx, domain.IndexSpec{
		Name:      name,
		Dimension: s.cfg.Dimension,
		Metric:    s.cfg.Metric,
	})
	if errors.Is(err, domain.ErrIndexExists) {
		return false, nil
	}
	if err != nil {
		return false, domain.UpstreamError("create index", name, err)
	}
	return created, nil
}

// embedWindow embeds a window of candidates on a bounded worker pool.
// The result slice is parallel to the input; nil marks a failed chunk.
func (s *IngestService) embedWindow(ctx context.Context, window []candidate) []*domain.IndexRecord {
	records := make([]*domain.IndexRecord, len(window))

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i := range window {
		g.Go(func() error {
			c := window[i]
			vec, err := s.embedder.Embed(ctx, c.chunk.Content)
			if err == nil {
				err = ValidateVector(vec, s.cfg.Dimension)
			}
			if err != nil {
				err = domain.UpstreamError("embed chunk", c.chunk.ID, err)
				logger.L().Error().
					Str("source", c.chunk.Source).
					Str("chunk_id", c.chunk.ID).
					Str("section", c.metadata.SectionTitle).
					Str("error_kind", domain.KindOf(err).String()).
					Err(err).
					Msg("embedding failed")
				return nil
			}
			records[i] = &domain.IndexRecord{ID: c.chunk.ID, Vector: vec, Metadata: c.metadata}
			return nil
		})
	}
	_ = g.Wait()
	return records
}

// flush upserts one batch. The call is detached from ctx cancellation so
// a batch is either written whole or reported failed, never interrupted;
// the store timeout still bounds it.
func (s *IngestService) flush(ctx context.Context, index string, batch []domain.IndexRecord, report *domain.IngestReport) {
	ctx, span := otel.Tracer(tracerName).Start(context.WithoutCancel(ctx), "ingest.flush")
	defer span.End()
	span.SetAttributes(attribute.Int("texquery.batch_size", len(batch)))

	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	if err := s.store.Upsert(ctx, index, batch); err != nil {
		err = domain.UpstreamError("upsert batch", index, err)
		span.SetStatus(codes.Error, err.Error())
		report.Failed += len(batch)
		s.observer.BatchUpserted(driven.OutcomeFailed, len(batch))
		for range batch {
			s.observer.ChunkProcessed(driven.OutcomeFailed)
		}
		logger.L().Error().
			Str("index", index).
			Str("first_chunk_id", batch[0].ID).
			Int("records", len(batch)).
			Str("error_kind", domain.KindOf(err).String()).
			Err(err).
			Msg("upsert failed")
		return
	}

	report.VectorCount += len(batch)
	report.Batches++
	s.observer.BatchUpserted(driven.OutcomeOK, len(batch))
	for range batch {
		s.observer.ChunkProcessed(driven.OutcomeStored)
	}
	logger.Debug("upserted %d records into %s", len(batch), index)
}

// IngestRef loads one document from the configured source and ingests it.
func (s *IngestService) IngestRef(ctx context.Context, ref driven.SourceRef) (domain.IngestReport, error) {
	if s.source == nil {
		return domain.IngestReport{Source: ref.ID}, domain.FatalError("ingest", ref.ID, errors.New("no document source configured"))
	}
	doc, err := s.source.Load(ctx, ref)
	if err != nil {
		return domain.IngestReport{Source: ref.ID}, err
	}
	return s.Ingest(ctx, doc, ref.ID)
}

// IngestAll ingests every listed document in order. A failing document is
// logged and skipped; the joined non-fatal errors are returned alongside
// the reports. Fatal errors and cancellation stop the run.
func (s *IngestService) IngestAll(ctx context.Context) ([]domain.IngestReport, error) {
	if s.source == nil {
		return nil, domain.FatalError("ingest all", "", errors.New("no document source configured"))
	}
	refs, err := s.source.List(ctx)
	if err != nil {
		return nil, err
	}

	logger.Section("Ingestion")
	var (
		reports []domain.IngestReport
		errs    []error
	)
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report, err := s.IngestRef(ctx, ref)
		if err != nil {
			if domain.IsFatal(err) || errors.Is(err, context.Canceled) {
				return reports, err
			}
			logger.L().Error().
				Str("source", ref.ID).
				Str("path", ref.Path).
				Str("error_kind", domain.KindOf(err).String()).
				Err(err).
				Msg("no valid document to process")
			errs = append(errs, err)
			continue
		}
		reports = append(reports, report)
	}
	return reports, errors.Join(errs...)
}

// ValidateVector checks the length of v against dimension and rejects
// NaN or infinite components.
func ValidateVector(v []float32, dimension int) error {
	if dimension > 0 && len(v) != dimension {
		return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(v), dimension)
	}
	for _, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return domain.ErrInvalidVector
		}
	}
	return nil
}

// nopObserver discards pipeline events.
type nopObserver struct{}

func (nopObserver) ChunkProcessed(string)               {}
func (nopObserver) BatchUpserted(string, int)           {}
func (nopObserver) QueryAnswered(string, time.Duration) {}
