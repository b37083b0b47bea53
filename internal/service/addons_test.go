package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addonsdir/addons-server/internal/domain"
	"github.com/addonsdir/addons-server/internal/errors"
	"github.com/addonsdir/addons-server/internal/store"
	"github.com/addonsdir/addons-server/internal/store/sqlite"
)

type addonFixture struct {
	svc   *AddonService
	tags  *TagService
	store *sqlite.Store
	idx   *recordingIndexer
	owner *domain.User
}

func newAddonFixture(t *testing.T) *addonFixture {
	t.Helper()
	s := newTestStore(t)
	owner := &domain.User{Name: "alice", APIToken: "T1"}
	require.NoError(t, s.CreateUser(context.Background(), owner))

	idx := &recordingIndexer{}
	tags := NewTagService(s, idx, testLogger())
	return &addonFixture{
		svc:   NewAddonService(s, tags, idx, testLogger()),
		tags:  tags,
		store: s,
		idx:   idx,
		owner: owner,
	}
}

func (f *addonFixture) addon(repo string) *domain.Addon {
	return &domain.Addon{
		Name:       "Forms",
		UserID:     f.owner.ID,
		Repository: repo,
		Versions:   []*domain.Version{{Version: "1.0.0", License: "MIT"}},
	}
}

func TestAddonService_Create(t *testing.T) {
	f := newAddonFixture(t)
	ctx := context.Background()

	a := f.addon("https://github.com/acme/forms")
	a.Tags = []domain.TagRef{domain.ParseTagRef("Forms"), domain.ParseTagRef("Validation")}
	require.NoError(t, f.svc.Create(ctx, a))

	assert.NotZero(t, a.ID)
	assert.NotZero(t, a.Versions[0].ID)
	assert.False(t, a.UpdatedAt.IsZero())
	assert.Equal(t, []int64{a.ID}, f.idx.indexed)
	for _, ref := range a.Tags {
		assert.False(t, ref.IsName(), "tags rewritten to ids")
	}

	got, err := f.svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Repository, got.Repository)
	assert.Len(t, got.Versions, 1)
	assert.Len(t, got.Tags, 2)

	tags, err := f.tags.TagsForAddon(ctx, a.ID)
	require.NoError(t, err)
	var slugs []string
	for _, tag := range tags {
		slugs = append(slugs, tag.Slug)
	}
	assert.ElementsMatch(t, []string{"forms", "validation"}, slugs)
}

func TestAddonService_Create_Validation(t *testing.T) {
	f := newAddonFixture(t)
	ctx := context.Background()

	persisted := f.addon("https://github.com/acme/a")
	persisted.ID = 5
	assert.ErrorIs(t, f.svc.Create(ctx, persisted), errors.ErrValidation)

	noVersions := f.addon("https://github.com/acme/b")
	noVersions.Versions = nil
	assert.ErrorIs(t, f.svc.Create(ctx, noVersions), errors.ErrValidation)

	noRepo := f.addon("  ")
	assert.ErrorIs(t, f.svc.Create(ctx, noRepo), errors.ErrValidation)

	assert.Empty(t, f.idx.indexed)
}

func TestAddonService_Create_DuplicateRepository(t *testing.T) {
	f := newAddonFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Create(ctx, f.addon("https://github.com/acme/forms")))

	dup := f.addon("https://github.com/acme/forms")
	err := f.svc.Create(ctx, dup)
	assert.ErrorIs(t, err, errors.ErrConflict)
	assert.Zero(t, dup.ID)
	assert.Zero(t, dup.Versions[0].ID)
}

func TestAddonService_Create_FailureKeepsNewTagsOut(t *testing.T) {
	f := newAddonFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Create(ctx, f.addon("https://github.com/acme/forms")))

	dup := f.addon("https://github.com/acme/forms")
	dup.Tags = []domain.TagRef{domain.ParseTagRef("Orphan Tag")}
	require.ErrorIs(t, f.svc.Create(ctx, dup), errors.ErrConflict)
	assert.Zero(t, dup.ID)

	_, err := f.store.GetTagBySlug(ctx, "orphan-tag")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAddonService_Create_ReusesAndDeduplicatesTags(t *testing.T) {
	f := newAddonFixture(t)
	ctx := context.Background()

	existing, err := f.tags.CreateCategory(ctx, "Forms", nil)
	require.NoError(t, err)

	a := f.addon("https://github.com/acme/forms")
	a.Tags = []domain.TagRef{
		domain.ParseTagRef("forms"),
		domain.TagRefByID(existing.ID),
		domain.ParseTagRef("New One"),
		domain.ParseTagRef("new one"),
	}
	require.NoError(t, f.svc.Create(ctx, a))

	require.Len(t, a.Tags, 2)
	assert.Equal(t, existing.ID, a.Tags[0].ID)

	tags, err := f.tags.TagsForAddon(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, tags, 2)
}

func TestAddonService_Create_UnusableTagName(t *testing.T) {
	f := newAddonFixture(t)
	ctx := context.Background()

	a := f.addon("https://github.com/acme/forms")
	a.Tags = []domain.TagRef{domain.ParseTagRef("!!!")}
	assert.ErrorIs(t, f.svc.Create(ctx, a), errors.ErrValidation)

	_, err := f.svc.FindAddonByRepository(ctx, "https://github.com/acme/forms")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestAddonService_Update(t *testing.T) {
	f := newAddonFixture(t)
	ctx := context.Background()

	a := f.addon("https://github.com/acme/forms")
	require.NoError(t, f.svc.Create(ctx, a))

	a.ShortDescription = "Form helpers"
	require.NoError(t, f.svc.Update(ctx, a))

	got, err := f.svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Form helpers", got.ShortDescription)

	assert.ErrorIs(t, f.svc.Update(ctx, f.addon("https://github.com/acme/x")), errors.ErrValidation)

	ghost := f.addon("https://github.com/acme/ghost")
	ghost.ID = 999
	assert.ErrorIs(t, f.svc.Update(ctx, ghost), errors.ErrNotFound)
}

func TestAddonService_Lookups(t *testing.T) {
	f := newAddonFixture(t)
	ctx := context.Background()

	a := f.addon("https://github.com/acme/forms")
	require.NoError(t, f.svc.Create(ctx, a))

	got, err := f.svc.FindAddonByRepository(ctx, "https://github.com/acme/forms")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = f.svc.FindAddonByRepository(ctx, "https://github.com/acme/none")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = f.svc.Get(ctx, 12345)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	list, err := f.svc.List(ctx, store.AddonFilter{Query: "form"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAddonService_SaveTags(t *testing.T) {
	f := newAddonFixture(t)
	ctx := context.Background()

	a := f.addon("https://github.com/acme/forms")
	a.Tags = []domain.TagRef{domain.ParseTagRef("one"), domain.ParseTagRef("two")}
	require.NoError(t, f.svc.Create(ctx, a))
	one := a.Tags[0]

	require.NoError(t, f.svc.SaveTags(ctx, a, []domain.TagRef{one, domain.ParseTagRef("three")}))

	tags, err := f.tags.TagsForAddon(ctx, a.ID)
	require.NoError(t, err)
	var slugs []string
	for _, tag := range tags {
		slugs = append(slugs, tag.Slug)
	}
	assert.ElementsMatch(t, []string{"one", "three"}, slugs)

	_, err = f.store.GetTagBySlug(ctx, "two")
	assert.NoError(t, err, "unused tags are kept")
}
