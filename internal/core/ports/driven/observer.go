package driven

import "time"

// Outcome labels for PipelineObserver.
const (
	OutcomeStored  = "stored"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
	OutcomeOK      = "ok"
	OutcomeError   = "error"
)

// PipelineObserver receives pipeline events for metrics.
type PipelineObserver interface {
	// ChunkProcessed records the fate of one chunk.
	ChunkProcessed(outcome string)

	// BatchUpserted records one upsert call and its size.
	BatchUpserted(outcome string, records int)

	// QueryAnswered records one retrieval or answer request.
	QueryAnswered(outcome string, elapsed time.Duration)
}
