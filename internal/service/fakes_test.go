package service

import (
	"cmp"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/addonsdir/addons-server/internal/auth"
	"github.com/addonsdir/addons-server/internal/domain"
	"github.com/addonsdir/addons-server/internal/errors"
	"github.com/addonsdir/addons-server/internal/importer"
	"github.com/addonsdir/addons-server/internal/store"
	"github.com/addonsdir/addons-server/internal/store/sqlite"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestStore opens a temporary SQLite store.
func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// fakeTagStore is an in-memory store.TagStore that counts writes.
type fakeTagStore struct {
	mu     sync.Mutex
	nextID int64
	tags   map[int64]*domain.Tag
	slugs  map[string]int64
	assoc  map[int64][]int64 // addon id -> tag ids

	createCalls    int
	getBySlugCalls int
	deleteCalls    int
	insertCalls    int
	deleted        [][]int64
	inserted       []int64
}

var _ store.TagStore = (*fakeTagStore)(nil)

func newFakeTagStore() *fakeTagStore {
	return &fakeTagStore{
		nextID: 100,
		tags:   map[int64]*domain.Tag{},
		slugs:  map[string]int64{},
		assoc:  map[int64][]int64{},
	}
}

func (f *fakeTagStore) seedTag(t domain.Tag) *domain.Tag {
	f.mu.Lock()
	defer f.mu.Unlock()
	tag := t
	f.tags[tag.ID] = &tag
	f.slugs[tag.Slug] = tag.ID
	return &tag
}

func (f *fakeTagStore) seedAssoc(addonID int64, tagIDs ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assoc[addonID] = append([]int64(nil), tagIDs...)
}

func (f *fakeTagStore) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls + f.deleteCalls + f.insertCalls
}

func (f *fakeTagStore) resetCounters() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls, f.getBySlugCalls, f.deleteCalls, f.insertCalls = 0, 0, 0, 0
	f.deleted, f.inserted = nil, nil
}

func (f *fakeTagStore) CreateTag(_ context.Context, t *domain.Tag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if _, ok := f.slugs[t.Slug]; ok {
		return store.ErrAlreadyExists
	}
	f.nextID++
	t.ID = f.nextID
	tag := *t
	f.tags[t.ID] = &tag
	f.slugs[t.Slug] = t.ID
	return nil
}

func (f *fakeTagStore) GetTag(_ context.Context, id int64) (*domain.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tags[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTagStore) GetTagBySlug(_ context.Context, slug string) (*domain.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getBySlugCalls++
	id, ok := f.slugs[slug]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *f.tags[id]
	return &cp, nil
}

func (f *fakeTagStore) filter(keep func(*domain.Tag) bool) []*domain.Tag {
	out := []*domain.Tag{}
	for _, t := range f.tags {
		if keep(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *domain.Tag) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (f *fakeTagStore) ListTagsByLevel(_ context.Context, level int) ([]*domain.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter(func(t *domain.Tag) bool { return t.Level == level }), nil
}

func (f *fakeTagStore) ListTagsWithAddons(_ context.Context, level int) ([]*domain.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	used := map[int64]bool{}
	for _, ids := range f.assoc {
		for _, id := range ids {
			used[id] = true
		}
	}
	return f.filter(func(t *domain.Tag) bool { return t.Level == level && used[t.ID] }), nil
}

func (f *fakeTagStore) ListChildTags(_ context.Context, parentID int64) ([]*domain.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter(func(t *domain.Tag) bool { return t.ParentID != nil && *t.ParentID == parentID }), nil
}

func (f *fakeTagStore) GetTagsByIDs(_ context.Context, ids []int64) ([]*domain.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter(func(t *domain.Tag) bool { return slices.Contains(ids, t.ID) }), nil
}

func (f *fakeTagStore) GetAddonTagIDs(_ context.Context, addonID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := append([]int64{}, f.assoc[addonID]...)
	slices.Sort(ids)
	return ids, nil
}

func (f *fakeTagStore) DeleteAddonTags(_ context.Context, addonID int64, tagIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	f.deleted = append(f.deleted, append([]int64(nil), tagIDs...))
	f.assoc[addonID] = slices.DeleteFunc(f.assoc[addonID], func(id int64) bool {
		return slices.Contains(tagIDs, id)
	})
	return nil
}

func (f *fakeTagStore) InsertAddonTag(_ context.Context, addonID, tagID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if slices.Contains(f.assoc[addonID], tagID) {
		return store.ErrAlreadyExists
	}
	f.inserted = append(f.inserted, tagID)
	f.assoc[addonID] = append(f.assoc[addonID], tagID)
	return nil
}

// recordingIndexer remembers which addons were indexed.
type recordingIndexer struct {
	mu      sync.Mutex
	indexed []int64
	err     error
}

func (r *recordingIndexer) IndexAddon(_ context.Context, a *domain.Addon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, a.ID)
	return r.err
}

// fakeImporter returns fixed versions.
type fakeImporter struct {
	url      string
	versions []*domain.Version
	meta     *importer.Metadata
	err      error
}

func (f *fakeImporter) RepositoryURL() string { return f.url }

func (f *fakeImporter) Fetch(context.Context) (*importer.Metadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.meta, nil
}

func (f *fakeImporter) ImportVersions(context.Context) ([]*domain.Version, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*domain.Version, 0, len(f.versions))
	for _, v := range f.versions {
		cp := *v
		out = append(out, &cp)
	}
	return out, nil
}

// fakeUsers is a UserFinder over a fixed map.
type fakeUsers struct {
	users map[string]*domain.User
	err   error
	calls int
}

func (f *fakeUsers) FindUserByName(_ context.Context, name string) (*domain.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[name]
	if !ok {
		return nil, errors.NotFoundf("user %q not found", name)
	}
	return u, nil
}

// fakeAddons is an AddonFinder over a fixed map.
type fakeAddons struct {
	addons  map[string]*domain.Addon
	calls   int
	lastURL string
}

func (f *fakeAddons) FindAddonByRepository(_ context.Context, url string) (*domain.Addon, error) {
	f.calls++
	f.lastURL = url
	a, ok := f.addons[url]
	if !ok {
		return nil, errors.NotFoundf("no addon for %s", url)
	}
	return a, nil
}

// fakeUpdater records UpdateVersions calls.
type fakeUpdater struct {
	calls    int
	addons   []*domain.Addon
	urls     []string
	identity auth.Identity
	err      error
}

func (f *fakeUpdater) UpdateVersions(_ context.Context, a *domain.Addon, imp importer.Importer, id auth.Identity) (int, error) {
	f.calls++
	f.addons = append(f.addons, a)
	f.urls = append(f.urls, imp.RepositoryURL())
	f.identity = id
	return 0, f.err
}

// identityFunc adapts auth.NewIdentity to IdentityProvider.
type identityFunc func(*domain.User) auth.Identity

func (fn identityFunc) CreateIdentity(u *domain.User) auth.Identity { return fn(u) }
