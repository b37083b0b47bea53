package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/addonsdir/addons-server/internal/auth"
	"github.com/addonsdir/addons-server/internal/domain"
	"github.com/addonsdir/addons-server/internal/errors"
	"github.com/addonsdir/addons-server/internal/importer"
	"github.com/addonsdir/addons-server/internal/store"
)

// versionStore is the write access ManageService needs.
type versionStore interface {
	CreateVersion(ctx context.Context, v *domain.Version) error
	TouchAddon(ctx context.Context, id int64, at time.Time) error
}

// ManageService applies imported data to existing addons.
type ManageService struct {
	store   versionStore
	indexer AddonIndexer // Optional
	logger  *slog.Logger
}

// NewManageService creates a new manage service. indexer may be nil.
func NewManageService(store versionStore, indexer AddonIndexer, logger *slog.Logger) *ManageService {
	return &ManageService{store: store, indexer: indexer, logger: logger}
}

// UpdateVersions imports versions through imp and stores the ones the addon
// does not have yet. Returns how many were added.
func (s *ManageService) UpdateVersions(ctx context.Context, addon *domain.Addon, imp importer.Importer, identity auth.Identity) (int, error) {
	if !addon.IsPersisted() {
		return 0, errors.Internal("addon has not been saved")
	}

	imported, err := imp.ImportVersions(ctx)
	if err != nil {
		return 0, fmt.Errorf("import versions for %s: %w", imp.RepositoryURL(), err)
	}

	added := 0
	for _, v := range imported {
		if addon.HasVersion(v.Version) {
			continue
		}
		v.AddonID = addon.ID
		if err := s.store.CreateVersion(ctx, v); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				// Stored by a concurrent update since the addon was loaded.
				continue
			}
			return added, fmt.Errorf("store version %s: %w", v.Version, err)
		}
		addon.Versions = append(addon.Versions, v)
		added++
	}

	addon.Touch()
	if err := s.store.TouchAddon(ctx, addon.ID, addon.UpdatedAt); err != nil {
		return added, fmt.Errorf("touch addon: %w", err)
	}

	s.logger.Info("addon versions updated",
		append([]any{
			"addon_id", addon.ID,
			"repository", addon.Repository,
			"imported", len(imported),
			"added", added,
		}, identity.LogAttrs()...)...,
	)

	if added > 0 && s.indexer != nil {
		if err := s.indexer.IndexAddon(ctx, addon); err != nil {
			s.logger.Warn("failed to index addon", "addon_id", addon.ID, "error", err)
		}
	}
	return added, nil
}
