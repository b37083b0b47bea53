package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/addonsdir/addons-server/internal/config"
	"github.com/addonsdir/addons-server/internal/logger"
	"github.com/addonsdir/addons-server/internal/search"
	"github.com/addonsdir/addons-server/internal/service"
	"github.com/addonsdir/addons-server/internal/store"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.AddonIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewAddonIndex(search.Options{
		DataPath: cfg.Data.SearchPath(),
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{AddonIndex: index}, nil
}

// ProvideSearchService provides the search service.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSearchService(indexHandle.AddonIndex, storeHandle.Store, log.Logger), nil
}

// TriggerSearchReindexIfNeeded rebuilds the index in the background when it
// is empty but the database already holds addons.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, err := indexHandle.DocumentCount()
	if err != nil || docCount > 0 {
		return
	}

	ctx := context.Background()
	addons, err := storeHandle.ListAddons(ctx, store.AddonFilter{})
	if err != nil {
		log.Warn("Failed to check addons for reindex", "error", err)
		return
	}
	if len(addons) == 0 {
		return
	}

	log.Info("Search index empty, rebuilding", "addons", len(addons))
	go func() {
		count, err := searchService.ReindexAll(ctx)
		if err != nil {
			log.Error("Search reindex failed", "error", err)
			return
		}
		log.Info("Search reindex complete", "documents", count)
	}()
}
