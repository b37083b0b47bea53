package api

import (
	"github.com/addonsdir/addons-server/internal/importer"
	"github.com/addonsdir/addons-server/internal/service"
)

// Services groups the business logic used by the API server.
type Services struct {
	Users     *service.UserService
	Addons    *service.AddonService
	Tags      *service.TagService
	Manage    *service.ManageService
	Webhook   *service.WebhookService
	Search    *service.SearchService // Optional
	Importers *importer.Manager
}
