package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/addonsdir/addons-server/internal/domain"
	domainerrors "github.com/addonsdir/addons-server/internal/errors"
	"github.com/addonsdir/addons-server/internal/importer"
	"github.com/addonsdir/addons-server/internal/store"
)

func (s *Server) registerAddonRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listAddons",
		Method:      http.MethodGet,
		Path:        "/api/v1/addons",
		Summary:     "List addons",
		Description: "Returns addons, optionally filtered by tag slug and a name/description substring",
		Tags:        []string{"Addons"},
	}, s.handleListAddons)

	huma.Register(s.api, huma.Operation{
		OperationID: "getAddon",
		Method:      http.MethodGet,
		Path:        "/api/v1/addons/{id}",
		Summary:     "Get addon",
		Description: "Returns an addon with its versions and tags",
		Tags:        []string{"Addons"},
	}, s.handleGetAddon)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createAddon",
		Method:        http.MethodPost,
		Path:          "/api/v1/addons",
		Summary:       "Register addon",
		Description:   "Imports a repository and registers it as an addon owned by the caller",
		Tags:          []string{"Addons"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"basic": {}}},
	}, s.handleCreateAddon)

	huma.Register(s.api, huma.Operation{
		OperationID: "saveAddonTags",
		Method:      http.MethodPut,
		Path:        "/api/v1/addons/{id}/tags",
		Summary:     "Save addon tags",
		Description: "Replaces the addon's tag list. Unknown tag names are created.",
		Tags:        []string{"Addons"},
		Security:    []map[string][]string{{"basic": {}}},
	}, s.handleSaveAddonTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "refreshAddonVersions",
		Method:      http.MethodPost,
		Path:        "/api/v1/addons/{id}/versions/refresh",
		Summary:     "Refresh versions",
		Description: "Re-imports the repository and stores versions the addon does not have yet",
		Tags:        []string{"Addons"},
		Security:    []map[string][]string{{"basic": {}}},
	}, s.handleRefreshVersions)
}

// === DTOs ===

// VersionResponse contains version data in API responses.
type VersionResponse struct {
	ID              int64     `json:"id" doc:"Version ID"`
	Version         string    `json:"version" doc:"Version string"`
	License         string    `json:"license,omitempty" doc:"License at this version"`
	DistType        string    `json:"dist_type,omitempty" doc:"Distribution archive type"`
	DistURL         string    `json:"dist_url,omitempty" doc:"Distribution archive URL"`
	SourceType      string    `json:"source_type,omitempty" doc:"Source control type"`
	SourceURL       string    `json:"source_url,omitempty" doc:"Source repository URL"`
	SourceReference string    `json:"source_reference,omitempty" doc:"Commit the version points to"`
	UpdatedAt       time.Time `json:"updated_at" doc:"Last update time"`
}

// AddonResponse contains addon data in API responses.
type AddonResponse struct {
	ID               int64             `json:"id" doc:"Addon ID"`
	Name             string            `json:"name" doc:"Display name"`
	ComposerName     string            `json:"composer_name,omitempty" doc:"Package name from composer.json"`
	UserID           int64             `json:"user_id" doc:"Owner user ID"`
	Repository       string            `json:"repository" doc:"Canonical repository URL"`
	ShortDescription string            `json:"short_description,omitempty" doc:"One-line description"`
	Description      string            `json:"description,omitempty" doc:"Long description"`
	Demo             string            `json:"demo,omitempty" doc:"Demo URL"`
	DefaultLicense   string            `json:"default_license,omitempty" doc:"License of the latest version"`
	UpdatedAt        time.Time         `json:"updated_at" doc:"Last update time"`
	Versions         []VersionResponse `json:"versions,omitempty" doc:"Versions, newest first"`
	Tags             []TagResponse     `json:"tags,omitempty" doc:"Associated tags"`
}

// ListAddonsInput contains parameters for listing addons.
type ListAddonsInput struct {
	Query string `query:"q" maxLength:"100" doc:"Substring of name or short description"`
	Tag   string `query:"tag" doc:"Tag slug"`
}

// ListAddonsResponse contains a list of addons.
type ListAddonsResponse struct {
	Addons []AddonResponse `json:"addons" doc:"Matching addons"`
	Total  int             `json:"total" doc:"Number of addons"`
}

// ListAddonsOutput wraps the list addons response for Huma.
type ListAddonsOutput struct {
	Body ListAddonsResponse
}

// GetAddonInput contains parameters for getting an addon.
type GetAddonInput struct {
	ID int64 `path:"id" minimum:"1" doc:"Addon ID"`
}

// AddonOutput wraps the addon response for Huma.
type AddonOutput struct {
	Body AddonResponse
}

// CreateAddonRequest is the request body for registering an addon.
type CreateAddonRequest struct {
	Repository string        `json:"repository" validate:"required,max=500" minLength:"1" doc:"Repository URL"`
	Demo       string        `json:"demo,omitempty" validate:"omitempty,http_url" doc:"Demo URL"`
	Tags       []TagRefInput `json:"tags,omitempty" validate:"max=50" doc:"Tags: ids, names or {id} objects"`
}

// CreateAddonInput wraps the create addon request for Huma.
type CreateAddonInput struct {
	Body CreateAddonRequest
}

// SaveTagsRequest is the request body for saving addon tags.
type SaveTagsRequest struct {
	Tags []TagRefInput `json:"tags" validate:"max=50" doc:"Desired tags: ids, names or {id} objects"`
}

// SaveTagsInput wraps the save tags request for Huma.
type SaveTagsInput struct {
	ID   int64 `path:"id" minimum:"1" doc:"Addon ID"`
	Body SaveTagsRequest
}

// AddonTagsResponse lists an addon's tags after a save.
type AddonTagsResponse struct {
	AddonID int64         `json:"addon_id" doc:"Addon ID"`
	Tags    []TagResponse `json:"tags" doc:"Associated tags"`
}

// AddonTagsOutput wraps the addon tags response for Huma.
type AddonTagsOutput struct {
	Body AddonTagsResponse
}

// RefreshVersionsResponse reports a version refresh.
type RefreshVersionsResponse struct {
	AddonID       int64 `json:"addon_id" doc:"Addon ID"`
	VersionsAdded int   `json:"versions_added" doc:"Number of new versions stored"`
}

// RefreshVersionsOutput wraps the refresh response for Huma.
type RefreshVersionsOutput struct {
	Body RefreshVersionsResponse
}

// === Handlers ===

func (s *Server) handleListAddons(ctx context.Context, input *ListAddonsInput) (*ListAddonsOutput, error) {
	filter := store.AddonFilter{Query: input.Query}
	if input.Tag != "" {
		tag, err := s.services.Tags.GetTagBySlug(ctx, input.Tag)
		if err != nil {
			return nil, err
		}
		filter.TagID = tag.ID
	}

	addons, err := s.services.Addons.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]AddonResponse, 0, len(addons))
	for _, a := range addons {
		resp = append(resp, toAddonResponse(a, nil))
	}

	return &ListAddonsOutput{
		Body: ListAddonsResponse{Addons: resp, Total: len(resp)},
	}, nil
}

func (s *Server) handleGetAddon(ctx context.Context, input *GetAddonInput) (*AddonOutput, error) {
	addon, err := s.services.Addons.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	tags, err := s.services.Tags.TagsForAddon(ctx, addon.ID)
	if err != nil {
		return nil, err
	}

	return &AddonOutput{Body: toAddonResponse(addon, tags)}, nil
}

func (s *Server) handleCreateAddon(ctx context.Context, input *CreateAddonInput) (*AddonOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	if !s.services.Importers.IsValidRepositoryURL(input.Body.Repository) {
		return nil, domainerrors.Validation("Could not parse repository URL")
	}
	repository, err := s.services.Importers.NormalizeURL(input.Body.Repository)
	if err != nil {
		return nil, domainerrors.Validation("Could not parse repository URL").WithCause(err)
	}

	if existing, err := s.services.Addons.FindAddonByRepository(ctx, repository); err == nil {
		return nil, domainerrors.Conflict(fmt.Sprintf("addon for %s already exists", existing.Repository))
	} else if !domainerrors.Is(err, domainerrors.ErrNotFound) {
		return nil, err
	}

	imp, err := s.services.Importers.CreateFromURL(repository)
	if err != nil {
		return nil, s.importError(err, repository)
	}
	meta, err := imp.Fetch(ctx)
	if err != nil {
		return nil, s.importError(err, repository)
	}
	versions, err := imp.ImportVersions(ctx)
	if err != nil {
		return nil, s.importError(err, repository)
	}
	if len(versions) == 0 {
		return nil, domainerrors.Validation("Repository has no version tags")
	}

	addon := &domain.Addon{
		Name:             meta.Name,
		ComposerName:     meta.ComposerName,
		UserID:           user.ID,
		Repository:       repository,
		ShortDescription: meta.ShortDescription,
		Description:      meta.Description,
		Demo:             input.Body.Demo,
		DefaultLicense:   meta.License,
		Versions:         versions,
		Tags:             tagRefsFromInput(input.Body.Tags),
	}
	if err := s.services.Addons.Create(ctx, addon); err != nil {
		return nil, err
	}

	tags, err := s.services.Tags.TagsForAddon(ctx, addon.ID)
	if err != nil {
		return nil, err
	}

	return &AddonOutput{Body: toAddonResponse(addon, tags)}, nil
}

func (s *Server) handleSaveAddonTags(ctx context.Context, input *SaveTagsInput) (*AddonTagsOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	addon, err := s.services.Addons.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	identity, err := s.RequireAddonManager(ctx, addon)
	if err != nil {
		return nil, err
	}

	if err := s.services.Addons.SaveTags(ctx, addon, tagRefsFromInput(input.Body.Tags)); err != nil {
		return nil, err
	}
	s.logger.Info("addon tags saved", append([]any{"addon_id", addon.ID}, identity.LogAttrs()...)...)

	tags, err := s.services.Tags.TagsForAddon(ctx, addon.ID)
	if err != nil {
		return nil, err
	}

	return &AddonTagsOutput{
		Body: AddonTagsResponse{AddonID: addon.ID, Tags: toTagResponses(tags)},
	}, nil
}

func (s *Server) handleRefreshVersions(ctx context.Context, input *GetAddonInput) (*RefreshVersionsOutput, error) {
	addon, err := s.services.Addons.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	identity, err := s.RequireAddonManager(ctx, addon)
	if err != nil {
		return nil, err
	}

	imp, err := s.services.Importers.CreateFromURL(addon.Repository)
	if err != nil {
		return nil, s.importError(err, addon.Repository)
	}

	added, err := s.services.Manage.UpdateVersions(ctx, addon, imp, identity)
	if err != nil {
		return nil, s.importError(err, addon.Repository)
	}

	return &RefreshVersionsOutput{
		Body: RefreshVersionsResponse{AddonID: addon.ID, VersionsAdded: added},
	}, nil
}

// importError maps importer failures to API errors.
func (s *Server) importError(err error, repository string) error {
	switch {
	case errors.Is(err, importer.ErrNotFound):
		return domainerrors.NotFound("Repository not found")
	case errors.Is(err, importer.ErrUnsupportedURL):
		return domainerrors.Validation("Could not parse repository URL")
	case errors.Is(err, importer.ErrRateLimited):
		s.logger.Warn("repository import rate limited", "repository", repository, "error", err)
		return huma.Error503ServiceUnavailable("Repository host rate limit reached, try again later")
	default:
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) {
			return err
		}
		s.logger.Error("repository import failed", "repository", repository, "error", err)
		return huma.Error502BadGateway("Repository import failed")
	}
}

func toAddonResponse(a *domain.Addon, tags []*domain.Tag) AddonResponse {
	resp := AddonResponse{
		ID:               a.ID,
		Name:             a.Name,
		ComposerName:     a.ComposerName,
		UserID:           a.UserID,
		Repository:       a.Repository,
		ShortDescription: a.ShortDescription,
		Description:      a.Description,
		Demo:             a.Demo,
		DefaultLicense:   a.DefaultLicense,
		UpdatedAt:        a.UpdatedAt,
	}
	for _, v := range a.Versions {
		resp.Versions = append(resp.Versions, VersionResponse{
			ID:              v.ID,
			Version:         v.Version,
			License:         v.License,
			DistType:        v.DistType,
			DistURL:         v.DistURL,
			SourceType:      v.SourceType,
			SourceURL:       v.SourceURL,
			SourceReference: v.SourceReference,
			UpdatedAt:       v.UpdatedAt,
		})
	}
	if tags != nil {
		resp.Tags = toTagResponses(tags)
	}
	return resp
}
