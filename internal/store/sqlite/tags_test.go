package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/addonsdir/addons-server/internal/domain"
	"github.com/addonsdir/addons-server/internal/store"
)

// makeTestTag creates a visible tag with the given level.
func makeTestTag(name, slug string, level int) *domain.Tag {
	return &domain.Tag{Name: name, Slug: slug, Level: level, Visible: true}
}

func TestCreateAndGetTag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tag := makeTestTag("Forms", "forms", domain.LevelCategory)
	if err := s.CreateTag(ctx, tag); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if tag.ID == 0 {
		t.Fatal("expected ID to be set")
	}

	got, err := s.GetTag(ctx, tag.ID)
	if err != nil {
		t.Fatalf("GetTag: %v", err)
	}
	if got.Name != "Forms" || got.Slug != "forms" || got.Level != domain.LevelCategory {
		t.Errorf("got %+v", got)
	}
	if !got.Visible {
		t.Error("expected visible tag")
	}
	if got.ParentID != nil {
		t.Errorf("ParentID: got %v, want nil", *got.ParentID)
	}

	bySlug, err := s.GetTagBySlug(ctx, "forms")
	if err != nil {
		t.Fatalf("GetTagBySlug: %v", err)
	}
	if bySlug.ID != tag.ID {
		t.Errorf("ID: got %d, want %d", bySlug.ID, tag.ID)
	}
}

func TestCreateTag_DefaultLevel(t *testing.T) {
	s := newTestStore(t)

	tag := &domain.Tag{Name: "misc", Slug: "misc"}
	if err := s.CreateTag(context.Background(), tag); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if tag.Level != domain.LevelOrdinaryTag {
		t.Errorf("Level: got %d, want %d", tag.Level, domain.LevelOrdinaryTag)
	}
}

func TestCreateTag_DuplicateSlug(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateTag(ctx, makeTestTag("Forms", "forms", domain.LevelOrdinaryTag)); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}

	err := s.CreateTag(ctx, makeTestTag("FORMS", "forms", domain.LevelOrdinaryTag))
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestGetTag_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetTag(ctx, 12345); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetTag: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetTagBySlug(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetTagBySlug: expected ErrNotFound, got %v", err)
	}
}

func TestTagHierarchy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	parent := makeTestTag("Forms", "forms", domain.LevelCategory)
	if err := s.CreateTag(ctx, parent); err != nil {
		t.Fatalf("CreateTag parent: %v", err)
	}
	child := makeTestTag("Date pickers", "date-pickers", domain.LevelSubcategory)
	child.ParentID = &parent.ID
	if err := s.CreateTag(ctx, child); err != nil {
		t.Fatalf("CreateTag child: %v", err)
	}

	got, err := s.GetTag(ctx, child.ID)
	if err != nil {
		t.Fatalf("GetTag: %v", err)
	}
	if got.ParentID == nil || *got.ParentID != parent.ID {
		t.Fatalf("ParentID: got %v, want %d", got.ParentID, parent.ID)
	}

	children, err := s.ListChildTags(ctx, parent.ID)
	if err != nil {
		t.Fatalf("ListChildTags: %v", err)
	}
	if len(children) != 1 || children[0].ID != child.ID {
		t.Errorf("children: got %+v", children)
	}

	cats, err := s.ListTagsByLevel(ctx, domain.LevelCategory)
	if err != nil {
		t.Fatalf("ListTagsByLevel: %v", err)
	}
	if len(cats) != 1 || cats[0].ID != parent.ID {
		t.Errorf("categories: got %+v", cats)
	}
}

func TestListTagsWithAddons(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "alice")

	used := makeTestTag("Forms", "forms", domain.LevelCategory)
	unused := makeTestTag("Charts", "charts", domain.LevelCategory)
	for _, tag := range []*domain.Tag{used, unused} {
		if err := s.CreateTag(ctx, tag); err != nil {
			t.Fatalf("CreateTag: %v", err)
		}
	}

	a := makeTestAddon(u.ID, "https://github.com/acme/forms", "1.0.0")
	if err := s.CreateAddon(ctx, a, store.LinkIDs(used.ID)); err != nil {
		t.Fatalf("CreateAddon: %v", err)
	}

	tags, err := s.ListTagsWithAddons(ctx, domain.LevelCategory)
	if err != nil {
		t.Fatalf("ListTagsWithAddons: %v", err)
	}
	if len(tags) != 1 || tags[0].ID != used.ID {
		t.Errorf("got %+v", tags)
	}
}

func TestAddonTagAssociations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "alice")

	var ids []int64
	for _, slug := range []string{"a", "b", "c"} {
		tag := makeTestTag(slug, slug, domain.LevelOrdinaryTag)
		if err := s.CreateTag(ctx, tag); err != nil {
			t.Fatalf("CreateTag: %v", err)
		}
		ids = append(ids, tag.ID)
	}

	a := makeTestAddon(u.ID, "https://github.com/acme/forms", "1.0.0")
	if err := s.CreateAddon(ctx, a, store.LinkIDs(ids[:2]...)); err != nil {
		t.Fatalf("CreateAddon: %v", err)
	}

	if err := s.InsertAddonTag(ctx, a.ID, ids[2]); err != nil {
		t.Fatalf("InsertAddonTag: %v", err)
	}
	if err := s.InsertAddonTag(ctx, a.ID, ids[2]); !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists on duplicate association, got %v", err)
	}

	if err := s.DeleteAddonTags(ctx, a.ID, ids[:2]); err != nil {
		t.Fatalf("DeleteAddonTags: %v", err)
	}
	if err := s.DeleteAddonTags(ctx, a.ID, nil); err != nil {
		t.Fatalf("DeleteAddonTags empty: %v", err)
	}

	current, err := s.GetAddonTagIDs(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAddonTagIDs: %v", err)
	}
	if len(current) != 1 || current[0] != ids[2] {
		t.Errorf("current: got %v, want [%d]", current, ids[2])
	}

	tags, err := s.GetTagsByIDs(ctx, append(current, 9999))
	if err != nil {
		t.Fatalf("GetTagsByIDs: %v", err)
	}
	if len(tags) != 1 || tags[0].Slug != "c" {
		t.Errorf("GetTagsByIDs: got %+v", tags)
	}
}
