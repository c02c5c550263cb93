package driven

import (
	"context"

	"github.com/sl2676/TexQuery/internal/core/domain"
)

// SourceRef names one document available from a DocumentSource.
type SourceRef struct {
	// ID is the source identifier, e.g. the file name without extension.
	ID string

	// Path is where the document lives.
	Path string
}

// DocumentSource supplies structured documents.
type DocumentSource interface {
	// List returns the available documents in stable order.
	List(ctx context.Context) ([]SourceRef, error)

	// Load decodes and validates one document.
	// Malformed input is a domain.KindInput error.
	Load(ctx context.Context, ref SourceRef) (*domain.Document, error)
}

// WatchableSource is implemented by sources that can report new or changed documents.
type WatchableSource interface {
	DocumentSource

	// Watch calls fn for each created or modified document until ctx is done.
	Watch(ctx context.Context, fn func(SourceRef)) error
}
