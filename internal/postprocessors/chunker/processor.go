// Package chunker provides the byte-bounded, word-preserving section chunker.
package chunker

import (
	"context"

	"github.com/sl2676/TexQuery/internal/core/domain"
	"github.com/sl2676/TexQuery/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultMaxBytes is the default byte ceiling per chunk.
const DefaultMaxBytes = 40000

// Processor splits section text into identified chunks.
type Processor struct {
	maxBytes int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxBytes sets the byte ceiling per chunk.
func WithMaxBytes(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{maxBytes: DefaultMaxBytes}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// MaxBytes returns the configured ceiling.
func (p *Processor) MaxBytes() int {
	return p.maxBytes
}

// Chunk splits text and numbers the fragments from 1.
func (p *Processor) Chunk(ctx context.Context, source string, sectionIndex int, text string) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fragments := Split(text, p.maxBytes)
	chunks := make([]domain.Chunk, 0, len(fragments))
	for i, f := range fragments {
		chunks = append(chunks, domain.Chunk{
			ID:           domain.ChunkID(source, sectionIndex, i+1),
			Source:       source,
			SectionIndex: sectionIndex,
			Index:        i + 1,
			Content:      f,
		})
	}
	return chunks, nil
}
