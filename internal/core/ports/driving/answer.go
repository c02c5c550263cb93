package driving

import (
	"context"

	"github.com/sl2676/TexQuery/internal/core/domain"
)

// AnswerService answers questions from indexed content.
type AnswerService interface {
	// Retrieve embeds the query and returns the nearest matches.
	Retrieve(ctx context.Context, query string, target domain.Target) (domain.QueryResult, error)

	// Answer retrieves context and synthesises a reply with the language model.
	Answer(ctx context.Context, req domain.AnswerRequest) (*domain.Answer, error)

	// Indexes lists the indexes that can be targeted.
	Indexes(ctx context.Context) ([]string, error)
}

// IndexAdmin exposes administrative index operations.
type IndexAdmin interface {
	// List returns every index name.
	List(ctx context.Context) ([]string, error)

	// Delete drops one index.
	Delete(ctx context.Context, name string) error

	// Reset drops every index and returns how many were removed.
	Reset(ctx context.Context) (int, error)
}
