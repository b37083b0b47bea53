package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/addonsdir/addons-server/internal/domain"
	"github.com/addonsdir/addons-server/internal/store"
)

// versionColumns must match the scan order in scanVersion.
const versionColumns = `id, addon_id, version, license, composer_json, dist_type,
	dist_url, source_type, source_url, source_reference, updated_at`

func scanVersion(scanner interface{ Scan(dest ...any) error }) (*domain.Version, error) {
	var (
		v         domain.Version
		updatedAt string
	)

	err := scanner.Scan(
		&v.ID,
		&v.AddonID,
		&v.Version,
		&v.License,
		&v.ComposerJSON,
		&v.DistType,
		&v.DistURL,
		&v.SourceType,
		&v.SourceURL,
		&v.SourceReference,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func insertVersion(ctx context.Context, db execer, v *domain.Version) error {
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = time.Now().UTC()
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO addon_versions (addon_id, version, license, composer_json,
			dist_type, dist_url, source_type, source_url, source_reference, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.AddonID,
		v.Version,
		v.License,
		v.ComposerJSON,
		v.DistType,
		v.DistURL,
		v.SourceType,
		v.SourceURL,
		v.SourceReference,
		formatTime(v.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage(fmt.Sprintf("version %s already exists", v.Version))
		}
		return fmt.Errorf("insert version %s: %w", v.Version, err)
	}

	v.ID, err = res.LastInsertId()
	return err
}

// CreateVersion inserts a version for an existing addon and sets v.ID.
// Returns store.ErrAlreadyExists if the addon already has that version string.
func (s *Store) CreateVersion(ctx context.Context, v *domain.Version) error {
	if v.AddonID == 0 {
		return store.ErrInvalidInput.WithMessage("version has no addon")
	}
	return insertVersion(ctx, s.db, v)
}

// ListVersions returns an addon's versions in insertion order.
func (s *Store) ListVersions(ctx context.Context, addonID int64) ([]*domain.Version, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+versionColumns+` FROM addon_versions WHERE addon_id = ? ORDER BY id ASC`, addonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	versions := []*domain.Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
