package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/addonsdir/addons-server/internal/api"
	"github.com/addonsdir/addons-server/internal/config"
	"github.com/addonsdir/addons-server/internal/importer"
	"github.com/addonsdir/addons-server/internal/logger"
	"github.com/addonsdir/addons-server/internal/service"
)

// Version is reported in the OpenAPI document. Set at build time.
var Version = "dev"

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	handler *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.handler.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Users:     do.MustInvoke[*service.UserService](i),
		Addons:    do.MustInvoke[*service.AddonService](i),
		Tags:      do.MustInvoke[*service.TagService](i),
		Manage:    do.MustInvoke[*service.ManageService](i),
		Webhook:   do.MustInvoke[*service.WebhookService](i),
		Search:    do.MustInvoke[*service.SearchService](i),
		Importers: do.MustInvoke[*importer.Manager](i),
	}

	handler := api.NewServer(storeHandle.Store, services, api.Options{
		Version:              Version,
		CORSOrigins:          cfg.Server.CORSOrigins,
		WebhookRatePerMinute: cfg.Webhook.RatePerMinute,
		WebhookBurst:         cfg.Webhook.Burst,
	}, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, handler: handler}, nil
}
