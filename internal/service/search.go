package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/addonsdir/addons-server/internal/domain"
	"github.com/addonsdir/addons-server/internal/search"
	"github.com/addonsdir/addons-server/internal/store"
)

// AddonIndexer keeps the search index in step with stored addons.
type AddonIndexer interface {
	IndexAddon(ctx context.Context, addon *domain.Addon) error
}

// searchStore is the read access SearchService needs.
type searchStore interface {
	ListAddons(ctx context.Context, filter store.AddonFilter) ([]*domain.Addon, error)
	GetAddonTagIDs(ctx context.Context, addonID int64) ([]int64, error)
	GetTagsByIDs(ctx context.Context, ids []int64) ([]*domain.Tag, error)
}

// SearchService bridges the search index with the data store, handling
// document creation and query execution.
type SearchService struct {
	index  *search.AddonIndex
	store  searchStore
	logger *slog.Logger
}

var _ AddonIndexer = (*SearchService)(nil)

// NewSearchService creates a new search service.
func NewSearchService(index *search.AddonIndex, store searchStore, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		store:  store,
		logger: logger,
	}
}

// Search runs a full-text addon search.
func (s *SearchService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	return s.index.Search(ctx, params)
}

// DocumentCount returns the number of indexed addons.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}

// IndexAddon indexes a single addon with its current tag slugs.
// Call this when an addon is created, updated or re-tagged.
func (s *SearchService) IndexAddon(ctx context.Context, addon *domain.Addon) error {
	doc, err := s.buildDocument(ctx, addon)
	if err != nil {
		return fmt.Errorf("build document: %w", err)
	}

	if err := s.index.IndexAddon(doc); err != nil {
		return fmt.Errorf("index document: %w", err)
	}

	s.logger.Debug("indexed addon", "id", addon.ID, "name", addon.Name)
	return nil
}

// ReindexAll rebuilds the index from the store.
func (s *SearchService) ReindexAll(ctx context.Context) (int, error) {
	addons, err := s.store.ListAddons(ctx, store.AddonFilter{})
	if err != nil {
		return 0, fmt.Errorf("list addons: %w", err)
	}

	docs := make([]*search.AddonDocument, 0, len(addons))
	for _, a := range addons {
		doc, err := s.buildDocument(ctx, a)
		if err != nil {
			return 0, fmt.Errorf("build document %d: %w", a.ID, err)
		}
		docs = append(docs, doc)
	}

	if err := s.index.Rebuild(); err != nil {
		return 0, err
	}
	if err := s.index.IndexAddons(docs); err != nil {
		return 0, err
	}

	s.logger.Info("search index rebuilt", "addons", len(docs))
	return len(docs), nil
}

func (s *SearchService) buildDocument(ctx context.Context, addon *domain.Addon) (*search.AddonDocument, error) {
	tagIDs, err := s.store.GetAddonTagIDs(ctx, addon.ID)
	if err != nil {
		return nil, err
	}
	tags, err := s.store.GetTagsByIDs(ctx, tagIDs)
	if err != nil {
		return nil, err
	}

	slugs := make([]string, 0, len(tags))
	for _, t := range tags {
		slugs = append(slugs, t.Slug)
	}
	return search.NewAddonDocument(addon, slugs), nil
}
