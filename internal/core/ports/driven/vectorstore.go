package driven

import (
	"context"

	"github.com/sl2676/TexQuery/internal/core/domain"
)

// MaxUpsertBatch is the largest number of records a single Upsert may carry.
const MaxUpsertBatch = 100

// VectorStore manages named similarity-searchable indexes.
type VectorStore interface {
	// CreateIndexIfAbsent creates the index unless it exists.
	// Returns true when this call created it. Implementations that lose a
	// creation race may return domain.ErrIndexExists.
	CreateIndexIfAbsent(ctx context.Context, spec domain.IndexSpec) (bool, error)

	// Upsert writes up to MaxUpsertBatch records atomically.
	Upsert(ctx context.Context, index string, records []domain.IndexRecord) error

	// Query returns up to topK nearest records, best first.
	// Ties keep store order. Unknown indexes yield domain.ErrIndexNotFound.
	Query(ctx context.Context, index string, vector []float32, topK int, includeMetadata bool) ([]domain.Match, error)

	// ListIndexNames returns every index in the store's enumeration order.
	ListIndexNames(ctx context.Context) ([]string, error)

	// DeleteIndex drops an index and its records.
	DeleteIndex(ctx context.Context, name string) error

	// Close releases resources.
	Close() error
}
