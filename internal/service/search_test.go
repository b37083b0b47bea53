package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addonsdir/addons-server/internal/domain"
	"github.com/addonsdir/addons-server/internal/search"
)

func TestSearchService_IndexesThroughAddonAndTagChanges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	index, err := search.NewAddonIndex(search.Options{Logger: testLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	searchSvc := NewSearchService(index, s, testLogger())
	tags := NewTagService(s, searchSvc, testLogger())
	addons := NewAddonService(s, tags, searchSvc, testLogger())

	owner := &domain.User{Name: "alice", APIToken: "T1"}
	require.NoError(t, s.CreateUser(ctx, owner))

	a := &domain.Addon{
		Name:             "Datagrid",
		UserID:           owner.ID,
		Repository:       "https://github.com/acme/datagrid",
		ShortDescription: "Sortable tables",
		Versions:         []*domain.Version{{Version: "1.0.0"}},
		Tags:             []domain.TagRef{domain.ParseTagRef("Tables")},
	}
	require.NoError(t, addons.Create(ctx, a))

	res, err := searchSvc.Search(ctx, search.SearchParams{Query: "datagrid", Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, a.ID, res.Hits[0].AddonID)
	assert.Equal(t, []string{"tables"}, res.Hits[0].Tags)

	require.NoError(t, addons.SaveTags(ctx, a, []domain.TagRef{domain.ParseTagRef("Grids")}))

	res, err = searchSvc.Search(ctx, search.SearchParams{Tags: []string{"grids"}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, []string{"grids"}, res.Hits[0].Tags)

	n, err := searchSvc.ReindexAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
