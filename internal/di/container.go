// Package di provides dependency injection configuration for the addons server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/addonsdir/addons-server/internal/config"
	"github.com/addonsdir/addons-server/internal/di/providers"
	"github.com/addonsdir/addons-server/internal/importer"
	"github.com/addonsdir/addons-server/internal/logger"
	"github.com/addonsdir/addons-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Repository providers
	do.Provide(injector, providers.ProvideImporters)

	// Business services
	do.Provide(injector, providers.ProvideUserService)
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideAddonService)
	do.Provide(injector, providers.ProvideManageService)
	do.Provide(injector, providers.ProvideWebhookService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services so configuration and storage errors
// surface at startup rather than on the first request.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SearchIndexHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*service.SearchService](injector)
	_ = do.MustInvoke[*importer.Manager](injector)

	_ = do.MustInvoke[*service.UserService](injector)
	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*service.AddonService](injector)
	_ = do.MustInvoke[*service.ManageService](injector)
	_ = do.MustInvoke[*service.WebhookService](injector)

	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}

	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
