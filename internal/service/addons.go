package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/addonsdir/addons-server/internal/domain"
	"github.com/addonsdir/addons-server/internal/errors"
	"github.com/addonsdir/addons-server/internal/store"
)

// AddonService manages addon records.
type AddonService struct {
	store   store.AddonStore
	tags    *TagService
	indexer AddonIndexer // Optional
	logger  *slog.Logger
}

// NewAddonService creates a new addon service. indexer may be nil.
func NewAddonService(store store.AddonStore, tags *TagService, indexer AddonIndexer, logger *slog.Logger) *AddonService {
	return &AddonService{
		store:   store,
		tags:    tags,
		indexer: indexer,
		logger:  logger,
	}
}

// Create stores a new addon together with its versions and tags in one
// transaction. On failure nothing is written and addon.ID stays 0.
func (s *AddonService) Create(ctx context.Context, addon *domain.Addon) error {
	if addon.ID != 0 {
		return errors.Validation("addon already has an ID")
	}
	if len(addon.Versions) == 0 {
		return errors.Validation("addon must have at least one version")
	}
	if strings.TrimSpace(addon.Repository) == "" {
		return errors.Validation("addon repository is required")
	}

	links, err := s.tags.TagLinks(addon.Tags)
	if err != nil {
		return err
	}

	addon.Touch()
	if err := s.store.CreateAddon(ctx, addon, links); err != nil {
		addon.ID = 0
		if errors.Is(err, store.ErrAlreadyExists) {
			return errors.Conflict(fmt.Sprintf("addon for %s already exists", addon.Repository)).WithCause(err)
		}
		return fmt.Errorf("create addon: %w", err)
	}

	tagIDs := make([]int64, 0, len(links))
	seen := make(map[int64]struct{}, len(links))
	for _, link := range links {
		if _, dup := seen[link.ID]; dup {
			continue
		}
		seen[link.ID] = struct{}{}
		tagIDs = append(tagIDs, link.ID)
	}
	addon.Tags = addon.Tags[:0]
	for _, tagID := range tagIDs {
		addon.Tags = append(addon.Tags, domain.TagRefByID(tagID))
	}

	s.logger.Info("addon created",
		"addon_id", addon.ID,
		"repository", addon.Repository,
		"versions", len(addon.Versions),
		"tags", len(tagIDs),
	)
	s.reindex(ctx, addon)
	return nil
}

// Update saves changed addon fields.
func (s *AddonService) Update(ctx context.Context, addon *domain.Addon) error {
	if !addon.IsPersisted() {
		return errors.Validation("addon has not been saved")
	}

	addon.Touch()
	if err := s.store.UpdateAddon(ctx, addon); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return errors.NotFoundf("addon %d not found", addon.ID)
		case errors.Is(err, store.ErrAlreadyExists):
			return errors.Conflict(fmt.Sprintf("addon for %s already exists", addon.Repository)).WithCause(err)
		default:
			return fmt.Errorf("update addon: %w", err)
		}
	}

	s.reindex(ctx, addon)
	return nil
}

// Get returns an addon with its versions and tag references.
func (s *AddonService) Get(ctx context.Context, id int64) (*domain.Addon, error) {
	a, err := s.store.GetAddon(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFoundf("addon %d not found", id)
	}
	return a, err
}

// FindAddonByRepository returns the addon registered for a canonical
// repository URL.
func (s *AddonService) FindAddonByRepository(ctx context.Context, url string) (*domain.Addon, error) {
	a, err := s.store.GetAddonByRepository(ctx, url)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFoundf("no addon for %s", url)
	}
	return a, err
}

// List returns addons matching the filter.
func (s *AddonService) List(ctx context.Context, filter store.AddonFilter) ([]*domain.Addon, error) {
	return s.store.ListAddons(ctx, filter)
}

// SaveTags replaces the addon's desired tag list and reconciles associations.
func (s *AddonService) SaveTags(ctx context.Context, addon *domain.Addon, refs []domain.TagRef) error {
	addon.Tags = refs
	return s.tags.SaveAddonTags(ctx, addon)
}

func (s *AddonService) reindex(ctx context.Context, addon *domain.Addon) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexAddon(ctx, addon); err != nil {
		s.logger.Warn("failed to index addon", "addon_id", addon.ID, "error", err)
	}
}
