package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/addonsdir/addons-server/internal/auth"
	"github.com/addonsdir/addons-server/internal/domain"
	"github.com/addonsdir/addons-server/internal/errors"
	"github.com/addonsdir/addons-server/internal/importer"
)

// Webhook failure messages, sent to the provider verbatim.
const (
	MsgInvalidRequest  = "Invalid request."
	MsgInvalidPayload  = "Missing or invalid payload"
	MsgInvalidCreds    = "Invalid credentials"
	MsgUnparseableRepo = "Could not parse payload repository URL"
	MsgAddonNotFound   = "Addon not found."
	MsgInternalError   = "Internal server error"
)

// Form fields of a push notification.
const (
	webhookPayloadField = "payload"
	webhookUserField    = "username"
	webhookTokenField   = "apiToken"
)

// UserFinder looks up users by name.
type UserFinder interface {
	FindUserByName(ctx context.Context, name string) (*domain.User, error)
}

// AddonFinder looks up addons by canonical repository URL.
type AddonFinder interface {
	FindAddonByRepository(ctx context.Context, url string) (*domain.Addon, error)
}

// RepositoryImporters validates and opens repository URLs.
type RepositoryImporters interface {
	IsValidRepositoryURL(url string) bool
	NormalizeURL(url string) (string, error)
	CreateFromURL(url string) (importer.Importer, error)
}

// VersionUpdater applies imported versions to an addon.
type VersionUpdater interface {
	UpdateVersions(ctx context.Context, addon *domain.Addon, imp importer.Importer, identity auth.Identity) (int, error)
}

// IdentityProvider builds identities for authenticated users.
type IdentityProvider interface {
	CreateIdentity(u *domain.User) auth.Identity
}

// PushRequest is a provider push notification as received on the webhook.
type PushRequest struct {
	Payload    string
	Username   string
	APIToken   string
	DeliveryID string
	Event      string // Provider event name, e.g. "push"
}

// ParsePushRequest extracts the webhook fields from a form. A missing
// field is an invalid request; present but empty fields are passed on.
func ParsePushRequest(form url.Values) (PushRequest, error) {
	var req PushRequest
	for field, dst := range map[string]*string{
		webhookPayloadField: &req.Payload,
		webhookUserField:    &req.Username,
		webhookTokenField:   &req.APIToken,
	} {
		values, ok := form[field]
		if !ok || len(values) == 0 {
			return PushRequest{}, errors.InvalidRequest(MsgInvalidRequest)
		}
		*dst = values[0]
	}
	return req, nil
}

// PushResult describes a handled push.
type PushResult struct {
	AddonID       int64
	VersionsAdded int
}

// WebhookService re-imports addon versions when a provider reports a push.
type WebhookService struct {
	users     UserFinder
	addons    AddonFinder
	importers RepositoryImporters
	updater   VersionUpdater
	identity  IdentityProvider
	logger    *slog.Logger
}

// NewWebhookService creates a new webhook service.
func NewWebhookService(
	users UserFinder,
	addons AddonFinder,
	importers RepositoryImporters,
	updater VersionUpdater,
	identity IdentityProvider,
	logger *slog.Logger,
) *WebhookService {
	return &WebhookService{
		users:     users,
		addons:    addons,
		importers: importers,
		updater:   updater,
		identity:  identity,
		logger:    logger,
	}
}

// HandlePush authenticates the sender, finds the addon for the pushed
// repository and updates its versions. Client errors come back as
// *errors.Error with the message to send; anything else is a server error.
// Nothing is retried.
func (s *WebhookService) HandlePush(ctx context.Context, req PushRequest) (*PushResult, error) {
	log := s.logger.With("delivery_id", req.DeliveryID, "event", req.Event)

	repoURL, err := repositoryURL(req.Payload)
	if err != nil {
		log.Info("webhook rejected", "reason", err)
		return nil, err
	}

	user, err := s.users.FindUserByName(ctx, req.Username)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			log.Info("webhook rejected", "reason", "unknown user", "user", req.Username)
			return nil, errors.InvalidCredentials(MsgInvalidCreds)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !TokensEqual(user.APIToken, req.APIToken) {
		log.Info("webhook rejected", "reason", "token mismatch", "user", req.Username)
		return nil, errors.InvalidCredentials(MsgInvalidCreds)
	}

	if !s.importers.IsValidRepositoryURL(repoURL) {
		log.Info("webhook rejected", "reason", "unsupported repository url", "url", repoURL)
		return nil, errors.Validation(MsgUnparseableRepo)
	}
	normalized, err := s.importers.NormalizeURL(repoURL)
	if err != nil {
		return nil, errors.Validation(MsgUnparseableRepo).WithCause(err)
	}

	addon, err := s.addons.FindAddonByRepository(ctx, normalized)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			log.Info("webhook rejected", "reason", "addon not found", "repository", normalized)
			return nil, errors.NotFound(MsgAddonNotFound)
		}
		return nil, fmt.Errorf("find addon: %w", err)
	}

	identity := s.identity.CreateIdentity(user)

	imp, err := s.importers.CreateFromURL(addon.Repository)
	if err != nil {
		return nil, fmt.Errorf("create importer for %s: %w", addon.Repository, err)
	}

	added, err := s.updater.UpdateVersions(ctx, addon, imp, identity)
	if err != nil {
		return nil, fmt.Errorf("update versions for addon %d: %w", addon.ID, err)
	}

	log.Info("webhook handled",
		"addon_id", addon.ID,
		"repository", addon.Repository,
		"user", user.Name,
		"versions_added", added,
	)
	return &PushResult{AddonID: addon.ID, VersionsAdded: added}, nil
}

// repositoryURL reads repository.url from the JSON payload.
func repositoryURL(payload string) (string, error) {
	var doc any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return "", errors.InvalidRequest(MsgInvalidRequest).WithCause(err)
	}

	root, ok := doc.(map[string]any)
	if !ok {
		return "", errors.Validation(MsgInvalidPayload)
	}
	repo, ok := root["repository"].(map[string]any)
	if !ok {
		return "", errors.Validation(MsgInvalidPayload)
	}
	v, ok := repo["url"]
	if !ok || v == nil {
		return "", errors.Validation(MsgInvalidPayload)
	}
	// A non-string url is present but can never parse as a repository URL.
	u, _ := v.(string)
	return u, nil
}
