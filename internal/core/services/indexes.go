package services

import (
	"context"
	"errors"
	"slices"

	"github.com/sl2676/TexQuery/internal/core/domain"
	"github.com/sl2676/TexQuery/internal/core/ports/driven"
	"github.com/sl2676/TexQuery/internal/core/ports/driving"
	"github.com/sl2676/TexQuery/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexAdmin = (*IndexService)(nil)

// IndexService provides administrative index operations.
type IndexService struct {
	store driven.VectorStore
}

// NewIndexService creates a new index admin service.
func NewIndexService(store driven.VectorStore) *IndexService {
	return &IndexService{store: store}
}

// List returns every index name in store order.
func (s *IndexService) List(ctx context.Context) ([]string, error) {
	names, err := s.store.ListIndexNames(ctx)
	if err != nil {
		return nil, domain.UpstreamError("list indexes", "", err)
	}
	return names, nil
}

// Delete drops one index.
func (s *IndexService) Delete(ctx context.Context, name string) error {
	names, err := s.List(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(names, name) {
		return domain.InputError("delete index", name, domain.ErrIndexNotFound)
	}
	if err := s.store.DeleteIndex(ctx, name); err != nil {
		return domain.UpstreamError("delete index", name, err)
	}
	logger.Info("deleted index %s", name)
	return nil
}

// Reset drops every index. It keeps going past individual failures and
// returns the number removed with the joined errors.
func (s *IndexService) Reset(ctx context.Context) (int, error) {
	names, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	var (
		removed int
		errs    []error
	)
	for _, name := range names {
		if err := s.store.DeleteIndex(ctx, name); err != nil {
			errs = append(errs, domain.UpstreamError("delete index", name, err))
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
