package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/addonsdir/addons-server/internal/domain"
	"github.com/addonsdir/addons-server/internal/store"
)

// addonColumns must match the scan order in scanAddon.
const addonColumns = `a.id, a.name, a.composer_name, a.user_id, a.repository,
	a.short_description, a.description, a.demo, a.default_license, a.updated_at`

func scanAddon(scanner interface{ Scan(dest ...any) error }) (*domain.Addon, error) {
	var (
		a         domain.Addon
		demo      sql.NullString
		updatedAt string
	)

	err := scanner.Scan(
		&a.ID,
		&a.Name,
		&a.ComposerName,
		&a.UserID,
		&a.Repository,
		&a.ShortDescription,
		&a.Description,
		&demo,
		&a.DefaultLicense,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Demo = demo.String
	a.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAddon inserts the addon, each of its versions, new tags and the tag
// associations in one transaction. On any failure the transaction is rolled
// back and the addon, its versions and new tags are left without ids.
func (s *Store) CreateAddon(ctx context.Context, addon *domain.Addon, links []store.TagLink) (err error) {
	if addon.ID != 0 {
		return store.ErrInvalidInput.WithMessage("addon already has an id")
	}

	defer func() {
		if err != nil {
			addon.ID = 0
			for _, v := range addon.Versions {
				v.ID = 0
				v.AddonID = 0
			}
			for i := range links {
				if links[i].Tag != nil {
					links[i].ID = 0
					links[i].Tag.ID = 0
				}
			}
		}
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if addon.UpdatedAt.IsZero() {
		addon.Touch()
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO addons (name, composer_name, user_id, repository,
			short_description, description, demo, default_license, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		addon.Name,
		addon.ComposerName,
		addon.UserID,
		addon.Repository,
		addon.ShortDescription,
		addon.Description,
		nullString(addon.Demo),
		addon.DefaultLicense,
		formatTime(addon.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage("addon repository already registered")
		}
		return fmt.Errorf("insert addon: %w", err)
	}
	if addon.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("addon id: %w", err)
	}

	for _, v := range addon.Versions {
		v.AddonID = addon.ID
		if err = insertVersion(ctx, tx, v); err != nil {
			return err
		}
	}

	linked := make(map[int64]struct{}, len(links))
	for i := range links {
		if links[i].Tag != nil {
			if err = ensureTag(ctx, tx, links[i].Tag); err != nil {
				return err
			}
			links[i].ID = links[i].Tag.ID
		}
		if _, dup := linked[links[i].ID]; dup {
			continue
		}
		linked[links[i].ID] = struct{}{}
		if err = insertAddonTag(ctx, tx, addon.ID, links[i].ID); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// UpdateAddon updates the mutable addon fields.
// Returns store.ErrNotFound if the addon does not exist.
func (s *Store) UpdateAddon(ctx context.Context, addon *domain.Addon) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE addons SET
			name = ?, composer_name = ?, repository = ?, short_description = ?,
			description = ?, demo = ?, default_license = ?, updated_at = ?
		WHERE id = ?`,
		addon.Name,
		addon.ComposerName,
		addon.Repository,
		addon.ShortDescription,
		addon.Description,
		nullString(addon.Demo),
		addon.DefaultLicense,
		formatTime(addon.UpdatedAt),
		addon.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage("addon repository already registered")
		}
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// GetAddon retrieves an addon with its versions and tag references.
// Returns store.ErrNotFound if the addon does not exist.
func (s *Store) GetAddon(ctx context.Context, id int64) (*domain.Addon, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+addonColumns+` FROM addons a WHERE a.id = ?`, id)
	return s.loadAddon(ctx, row)
}

// GetAddonByRepository retrieves an addon by its canonical repository URL.
// Returns store.ErrNotFound if no addon uses that repository.
func (s *Store) GetAddonByRepository(ctx context.Context, repository string) (*domain.Addon, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+addonColumns+` FROM addons a WHERE a.repository = ?`, repository)
	return s.loadAddon(ctx, row)
}

func (s *Store) loadAddon(ctx context.Context, row *sql.Row) (*domain.Addon, error) {
	a, err := scanAddon(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if a.Versions, err = s.ListVersions(ctx, a.ID); err != nil {
		return nil, fmt.Errorf("load versions: %w", err)
	}

	tagIDs, err := s.GetAddonTagIDs(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	for _, tagID := range tagIDs {
		a.Tags = append(a.Tags, domain.TagRefByID(tagID))
	}

	return a, nil
}

// ListAddons returns addons matching the filter, most recently updated first.
// Versions and tags are not loaded.
func (s *Store) ListAddons(ctx context.Context, filter store.AddonFilter) ([]*domain.Addon, error) {
	var (
		query strings.Builder
		where []string
		args  []any
	)

	query.WriteString(`SELECT ` + addonColumns + ` FROM addons a`)

	if filter.TagID != 0 {
		query.WriteString(` JOIN addons_tags aat ON aat.addon_id = a.id`)
		where = append(where, `aat.tag_id = ?`)
		args = append(args, filter.TagID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + escapeLike(q) + "%"
		where = append(where, `(a.name LIKE ? ESCAPE '\' OR a.short_description LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}
	if len(where) > 0 {
		query.WriteString(` WHERE ` + strings.Join(where, ` AND `))
	}
	query.WriteString(` ORDER BY a.updated_at DESC, a.id DESC`)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	addons := []*domain.Addon{}
	for rows.Next() {
		a, err := scanAddon(rows)
		if err != nil {
			return nil, err
		}
		addons = append(addons, a)
	}
	return addons, rows.Err()
}

// TouchAddon sets the addon's updated_at.
func (s *Store) TouchAddon(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE addons SET updated_at = ? WHERE id = ?`, formatTime(at), id)
	return err
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
