package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/addonsdir/addons-server/internal/domain"
	"github.com/addonsdir/addons-server/internal/store"
)

// tagColumns must match the scan order in scanTag.
const tagColumns = `t.id, t.name, t.slug, t.level, t.parent_id, t.visible`

func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var (
		t        domain.Tag
		parentID sql.NullInt64
		visible  int
	)

	if err := scanner.Scan(&t.ID, &t.Name, &t.Slug, &t.Level, &parentID, &visible); err != nil {
		return nil, err
	}

	if parentID.Valid {
		p := parentID.Int64
		t.ParentID = &p
	}
	t.Visible = visible != 0
	return &t, nil
}

func (s *Store) queryTags(ctx context.Context, query string, args ...any) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// CreateTag inserts a new tag and sets t.ID.
// Returns store.ErrAlreadyExists on duplicate slug; no lookup happens first,
// callers rely on the constraint to detect concurrent creation.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	return insertTag(ctx, s.db, t)
}

// ensureTag inserts t inside tx, or loads the tag already holding its slug.
// Either way t.ID is set.
func ensureTag(ctx context.Context, tx *sql.Tx, t *domain.Tag) error {
	err := insertTag(ctx, tx, t)
	if !errors.Is(err, store.ErrAlreadyExists) {
		return err
	}

	var id int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE slug = ?`, t.Slug).Scan(&id)
	if err != nil {
		return fmt.Errorf("get tag %q after conflict: %w", t.Slug, err)
	}
	t.ID = id
	return nil
}

func insertTag(ctx context.Context, db execer, t *domain.Tag) error {
	if t.Level == 0 {
		t.Level = domain.LevelOrdinaryTag
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO tags (name, slug, level, parent_id, visible)
		VALUES (?, ?, ?, ?, ?)`,
		t.Name,
		t.Slug,
		t.Level,
		nullableInt64(t.ParentID),
		boolToInt(t.Visible),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert tag %q: %w", t.Slug, err)
	}

	t.ID, err = res.LastInsertId()
	return err
}

// GetTag retrieves a tag by its ID.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTag(ctx context.Context, id int64) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags t WHERE t.id = ?`, id)

	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return t, err
}

// GetTagBySlug retrieves a tag by its slug.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTagBySlug(ctx context.Context, slug string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags t WHERE t.slug = ?`, slug)

	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return t, err
}

// ListTagsByLevel returns all tags of a level ordered by name.
func (s *Store) ListTagsByLevel(ctx context.Context, level int) ([]*domain.Tag, error) {
	return s.queryTags(ctx,
		`SELECT `+tagColumns+` FROM tags t WHERE t.level = ? ORDER BY t.name ASC`, level)
}

// ListTagsWithAddons returns tags of a level that have at least one addon.
func (s *Store) ListTagsWithAddons(ctx context.Context, level int) ([]*domain.Tag, error) {
	return s.queryTags(ctx, `
		SELECT `+tagColumns+` FROM tags t
		WHERE t.level = ?
		  AND EXISTS (SELECT 1 FROM addons_tags aat WHERE aat.tag_id = t.id)
		ORDER BY t.name ASC`, level)
}

// ListChildTags returns the tags whose parent is parentID.
func (s *Store) ListChildTags(ctx context.Context, parentID int64) ([]*domain.Tag, error) {
	return s.queryTags(ctx,
		`SELECT `+tagColumns+` FROM tags t WHERE t.parent_id = ? ORDER BY t.name ASC`, parentID)
}

// GetTagsByIDs returns the tags with the given ids. Unknown ids are skipped.
func (s *Store) GetTagsByIDs(ctx context.Context, ids []int64) ([]*domain.Tag, error) {
	if len(ids) == 0 {
		return []*domain.Tag{}, nil
	}
	return s.queryTags(ctx,
		`SELECT `+tagColumns+` FROM tags t WHERE t.id IN (`+placeholders(len(ids))+`) ORDER BY t.name ASC`,
		int64Args(ids)...)
}

// GetAddonTagIDs returns the ids of the tags associated with an addon.
func (s *Store) GetAddonTagIDs(ctx context.Context, addonID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag_id FROM addons_tags WHERE addon_id = ? ORDER BY tag_id ASC`, addonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteAddonTags removes the given associations with a single statement.
func (s *Store) DeleteAddonTags(ctx context.Context, addonID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}

	args := append([]any{addonID}, int64Args(tagIDs)...)
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM addons_tags WHERE addon_id = ? AND tag_id IN (`+placeholders(len(tagIDs))+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("delete addon tags: %w", err)
	}
	return nil
}

// InsertAddonTag associates a tag with an addon.
// Returns store.ErrAlreadyExists if the association exists.
func (s *Store) InsertAddonTag(ctx context.Context, addonID, tagID int64) error {
	return insertAddonTag(ctx, s.db, addonID, tagID)
}

func insertAddonTag(ctx context.Context, db execer, addonID, tagID int64) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO addons_tags (addon_id, tag_id) VALUES (?, ?)`, addonID, tagID)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert addon tag %d: %w", tagID, err)
	}
	return nil
}
