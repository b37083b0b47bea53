package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/addonsdir/addons-server/internal/domain"
	"github.com/addonsdir/addons-server/internal/errors"
	"github.com/addonsdir/addons-server/internal/store"
	"github.com/addonsdir/addons-server/internal/util"
)

// TagService owns tags and the addon/tag association.
type TagService struct {
	store   store.TagStore
	indexer AddonIndexer // Optional
	logger  *slog.Logger
}

// NewTagService creates a new tag service. indexer may be nil.
func NewTagService(store store.TagStore, indexer AddonIndexer, logger *slog.Logger) *TagService {
	return &TagService{
		store:   store,
		indexer: indexer,
		logger:  logger,
	}
}

// EnsureTag returns the id of the tag whose slug derives from name,
// creating an ordinary visible tag when there is none. Concurrent callers
// with the same name get the same id: the insert is attempted first and a
// slug conflict falls back to reading the existing row.
func (s *TagService) EnsureTag(ctx context.Context, name string) (int64, error) {
	slug := util.Webalize(name)
	if slug == "" {
		return 0, errors.Validationf("tag name %q has no usable characters", name)
	}

	t := &domain.Tag{
		Name:    name,
		Slug:    slug,
		Level:   domain.LevelOrdinaryTag,
		Visible: true,
	}
	err := s.store.CreateTag(ctx, t)
	if err == nil {
		s.logger.Debug("tag created", "tag_id", t.ID, "slug", slug)
		return t.ID, nil
	}
	if !errors.Is(err, store.ErrAlreadyExists) {
		return 0, fmt.Errorf("create tag %q: %w", slug, err)
	}

	existing, err := s.store.GetTagBySlug(ctx, slug)
	if err != nil {
		return 0, fmt.Errorf("get tag %q after conflict: %w", slug, err)
	}
	return existing.ID, nil
}

// ResolveTagIDs turns desired tag references into ids, creating tags for
// names. Ids are trusted as given. Duplicates collapse, first one wins.
func (s *TagService) ResolveTagIDs(ctx context.Context, refs []domain.TagRef) ([]int64, error) {
	ids := make([]int64, 0, len(refs))
	seen := make(map[int64]struct{}, len(refs))

	for _, ref := range refs {
		tagID := ref.ID
		if ref.IsName() {
			var err error
			if tagID, err = s.EnsureTag(ctx, ref.Name); err != nil {
				return nil, err
			}
		}
		if _, dup := seen[tagID]; dup {
			continue
		}
		seen[tagID] = struct{}{}
		ids = append(ids, tagID)
	}
	return ids, nil
}

// TagLinks turns tag references into store links for a new addon. Names
// become ordinary visible tags that the store gets or creates in the same
// transaction as the addon; nothing is written here.
func (s *TagService) TagLinks(refs []domain.TagRef) ([]store.TagLink, error) {
	links := make([]store.TagLink, 0, len(refs))
	for _, ref := range refs {
		if !ref.IsName() {
			links = append(links, store.TagLink{ID: ref.ID})
			continue
		}
		slug := util.Webalize(ref.Name)
		if slug == "" {
			return nil, errors.Validationf("tag name %q has no usable characters", ref.Name)
		}
		links = append(links, store.TagLink{Tag: &domain.Tag{
			Name:    ref.Name,
			Slug:    slug,
			Level:   domain.LevelOrdinaryTag,
			Visible: true,
		}})
	}
	return links, nil
}

// SaveAddonTags makes the addon's associations equal to addon.Tags with the
// fewest writes: one bulk delete for removed tags, one insert per added tag.
// An empty tag list leaves existing associations untouched.
func (s *TagService) SaveAddonTags(ctx context.Context, addon *domain.Addon) error {
	if len(addon.Tags) == 0 {
		return nil
	}
	if !addon.IsPersisted() {
		return errors.Validation("addon has not been saved")
	}

	desired, err := s.ResolveTagIDs(ctx, addon.Tags)
	if err != nil {
		return err
	}

	current, err := s.store.GetAddonTagIDs(ctx, addon.ID)
	if err != nil {
		return fmt.Errorf("read addon tags: %w", err)
	}

	toRemove, toAdd := diffIDs(current, desired)

	if len(toRemove) > 0 {
		if err := s.store.DeleteAddonTags(ctx, addon.ID, toRemove); err != nil {
			return err
		}
	}
	for _, tagID := range toAdd {
		if err := s.store.InsertAddonTag(ctx, addon.ID, tagID); err != nil {
			return err
		}
	}

	if len(toRemove) == 0 && len(toAdd) == 0 {
		return nil
	}

	s.logger.Info("addon tags saved",
		"addon_id", addon.ID,
		"removed", toRemove,
		"added", toAdd,
	)

	if s.indexer != nil {
		if err := s.indexer.IndexAddon(ctx, addon); err != nil {
			s.logger.Warn("failed to reindex addon after tag change",
				"addon_id", addon.ID,
				"error", err,
			)
		}
	}
	return nil
}

// diffIDs returns current minus desired and desired minus current.
func diffIDs(current, desired []int64) (toRemove, toAdd []int64) {
	want := make(map[int64]struct{}, len(desired))
	for _, id := range desired {
		want[id] = struct{}{}
	}
	have := make(map[int64]struct{}, len(current))
	for _, id := range current {
		have[id] = struct{}{}
		if _, ok := want[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range desired {
		if _, ok := have[id]; !ok {
			toAdd = append(toAdd, id)
			have[id] = struct{}{}
		}
	}
	return toRemove, toAdd
}

// IsCategory reports whether the tag is a main category.
func (s *TagService) IsCategory(t *domain.Tag) bool {
	return t.IsCategory()
}

// IsSubCategory reports whether the tag is a subcategory.
func (s *TagService) IsSubCategory(t *domain.Tag) bool {
	return t.IsSubcategory()
}

// ParentCategory returns the parent of a subcategory, or nil for any other
// tag or a subcategory without a parent.
func (s *TagService) ParentCategory(ctx context.Context, t *domain.Tag) (*domain.Tag, error) {
	if !t.IsSubcategory() || t.ParentID == nil {
		return nil, nil
	}
	parent, err := s.store.GetTag(ctx, *t.ParentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return parent, err
}

// SubCategories returns the tags whose parent is t.
func (s *TagService) SubCategories(ctx context.Context, t *domain.Tag) ([]*domain.Tag, error) {
	return s.store.ListChildTags(ctx, t.ID)
}

// MainTags returns every category.
func (s *TagService) MainTags(ctx context.Context) ([]*domain.Tag, error) {
	return s.store.ListTagsByLevel(ctx, domain.LevelCategory)
}

// MainTagsWithAddons returns the categories that have at least one addon.
func (s *TagService) MainTagsWithAddons(ctx context.Context) ([]*domain.Tag, error) {
	return s.store.ListTagsWithAddons(ctx, domain.LevelCategory)
}

// GetTagBySlug returns a tag by its slug.
func (s *TagService) GetTagBySlug(ctx context.Context, slug string) (*domain.Tag, error) {
	t, err := s.store.GetTagBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFoundf("tag %q not found", slug)
	}
	return t, err
}

// TagsForAddon returns the full tags associated with an addon.
func (s *TagService) TagsForAddon(ctx context.Context, addonID int64) ([]*domain.Tag, error) {
	ids, err := s.store.GetAddonTagIDs(ctx, addonID)
	if err != nil {
		return nil, err
	}
	return s.store.GetTagsByIDs(ctx, ids)
}

// CreateCategory creates a category, or a subcategory when parent is set.
func (s *TagService) CreateCategory(ctx context.Context, name string, parent *domain.Tag) (*domain.Tag, error) {
	slug := util.Webalize(name)
	if slug == "" {
		return nil, errors.Validationf("tag name %q has no usable characters", name)
	}

	t := &domain.Tag{Name: name, Slug: slug, Level: domain.LevelCategory, Visible: true}
	if parent != nil {
		if !parent.IsCategory() {
			return nil, errors.Validationf("tag %q is not a category", parent.Slug)
		}
		t.Level = domain.LevelSubcategory
		t.ParentID = &parent.ID
	}

	if err := s.store.CreateTag(ctx, t); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, errors.AlreadyExists(fmt.Sprintf("tag %q already exists", slug))
		}
		return nil, err
	}
	return t, nil
}
