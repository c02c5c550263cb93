package driven

import (
	"context"

	"github.com/sl2676/TexQuery/internal/core/domain"
)

// Chunker splits one section's normalised text into ordered chunks.
type Chunker interface {
	// Name returns the chunker name for logging.
	Name() string

	// Chunk returns the section's chunks with 1-based indices and identifiers.
	// Empty text yields no chunks.
	Chunk(ctx context.Context, source string, sectionIndex int, text string) ([]domain.Chunk, error)
}
