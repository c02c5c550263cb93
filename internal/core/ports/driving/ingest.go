package driving

import (
	"context"

	"github.com/sl2676/TexQuery/internal/core/domain"
	"github.com/sl2676/TexQuery/internal/core/ports/driven"
)

// IngestService stores documents as searchable vector records.
type IngestService interface {
	// Ingest chunks, embeds and stores one document under sourceID.
	// Per-chunk failures are counted in the report, not returned.
	Ingest(ctx context.Context, doc *domain.Document, sourceID string) (domain.IngestReport, error)

	// IngestRef loads a document from the source and ingests it.
	IngestRef(ctx context.Context, ref driven.SourceRef) (domain.IngestReport, error)

	// IngestAll ingests every document the source lists.
	// Malformed documents are reported and skipped; fatal errors abort.
	IngestAll(ctx context.Context) ([]domain.IngestReport, error)
}
