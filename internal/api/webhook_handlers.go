package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/addonsdir/addons-server/internal/http/response"
	"github.com/addonsdir/addons-server/internal/id"
	"github.com/addonsdir/addons-server/internal/service"
)

func (s *Server) registerWebhookRoutes() {
	s.router.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(s.webhookLimiter, s.logger))
		r.Post("/api/github/post-receive", s.handleGitHubPush)
		r.Post("/api/v1/webhooks/github", s.handleGitHubPush)
	})
}

// handleGitHubPush receives a form-encoded push notification and
// re-imports the versions of the pushed addon.
func (s *Server) handleGitHubPush(w http.ResponseWriter, r *http.Request) {
	deliveryID := r.Header.Get(headerGitHubDelivery)
	if deliveryID == "" {
		deliveryID = id.DeliveryID()
	}
	event := r.Header.Get(headerGitHubEvent)
	log := s.logger.With("delivery_id", deliveryID, "event", event)

	r.Body = http.MaxBytesReader(w, r.Body, MaxWebhookBodySize)
	if err := r.ParseForm(); err != nil {
		log.Info("webhook rejected", "reason", "unreadable form", "error", err)
		response.BadRequest(w, service.MsgInvalidRequest, log)
		return
	}

	req, err := service.ParsePushRequest(r.PostForm)
	if err != nil {
		log.Info("webhook rejected", "reason", "missing form field")
		response.HandleError(w, err, log)
		return
	}
	req.DeliveryID = deliveryID
	req.Event = event

	if _, err := s.services.Webhook.HandlePush(r.Context(), req); err != nil {
		response.HandleError(w, err, log)
		return
	}

	response.Success(w, log)
}
