package providers

import (
	"github.com/samber/do/v2"

	"github.com/addonsdir/addons-server/internal/config"
	"github.com/addonsdir/addons-server/internal/importer"
	"github.com/addonsdir/addons-server/internal/logger"
	"github.com/addonsdir/addons-server/internal/service"
)

// ProvideImporters provides the repository importer registry.
func ProvideImporters(i do.Injector) (*importer.Manager, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	github := importer.NewGitHub(importer.GitHubConfig{
		APIURL:            cfg.GitHub.APIURL,
		Token:             cfg.GitHub.Token,
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
		Burst:             cfg.GitHub.Burst,
	}, log.Logger)

	return importer.NewManager(github), nil
}

// ProvideUserService provides the user service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUserService(storeHandle.Store, log.Logger), nil
}

// ProvideTagService provides the tag service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(storeHandle.Store, searchService, log.Logger), nil
}

// ProvideAddonService provides the addon service.
func ProvideAddonService(i do.Injector) (*service.AddonService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tagService := do.MustInvoke[*service.TagService](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAddonService(storeHandle.Store, tagService, searchService, log.Logger), nil
}

// ProvideManageService provides the version management service.
func ProvideManageService(i do.Injector) (*service.ManageService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewManageService(storeHandle.Store, searchService, log.Logger), nil
}

// ProvideWebhookService provides the push webhook service.
func ProvideWebhookService(i do.Injector) (*service.WebhookService, error) {
	users := do.MustInvoke[*service.UserService](i)
	addons := do.MustInvoke[*service.AddonService](i)
	importers := do.MustInvoke[*importer.Manager](i)
	manage := do.MustInvoke[*service.ManageService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewWebhookService(users, addons, importers, manage, users, log.Logger), nil
}
