package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/addonsdir/addons-server/internal/domain"
	domainerrors "github.com/addonsdir/addons-server/internal/errors"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listCategories",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories",
		Summary:     "List categories",
		Description: "Returns main categories with their subcategories",
		Tags:        []string{"Tags"},
	}, s.handleListCategories)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createCategory",
		Method:        http.MethodPost,
		Path:          "/api/v1/categories",
		Summary:       "Create category",
		Description:   "Creates a category, or a subcategory of the given parent. Admin only.",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"basic": {}}},
	}, s.handleCreateCategory)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{slug}",
		Summary:     "Get tag",
		Description: "Returns a tag with its parent category and subcategories",
		Tags:        []string{"Tags"},
	}, s.handleGetTag)
}

// === DTOs ===

// TagResponse contains tag data in API responses.
type TagResponse struct {
	ID       int64  `json:"id" doc:"Tag ID"`
	Name     string `json:"name" doc:"Tag name"`
	Slug     string `json:"slug" doc:"URL-safe slug"`
	Level    int    `json:"level" doc:"1 category, 2 subcategory, 9 ordinary tag"`
	ParentID *int64 `json:"parent_id,omitempty" doc:"Parent category of a subcategory"`
	Visible  bool   `json:"visible" doc:"Shown in listings"`
}

// CategoryResponse is a category with its subcategories.
type CategoryResponse struct {
	TagResponse
	Subcategories []TagResponse `json:"subcategories" doc:"Child categories"`
}

// ListCategoriesInput contains parameters for listing categories.
type ListCategoriesInput struct {
	WithAddons bool `query:"with_addons" doc:"Only categories that have at least one addon"`
}

// ListCategoriesResponse contains a list of categories.
type ListCategoriesResponse struct {
	Categories []CategoryResponse `json:"categories" doc:"Main categories"`
}

// ListCategoriesOutput wraps the list categories response for Huma.
type ListCategoriesOutput struct {
	Body ListCategoriesResponse
}

// CreateCategoryRequest is the request body for creating a category.
type CreateCategoryRequest struct {
	Name   string `json:"name" validate:"required,max=100,tagname" minLength:"1" doc:"Category name"`
	Parent string `json:"parent,omitempty" validate:"omitempty,max=100" doc:"Slug of the parent category"`
}

// CreateCategoryInput wraps the create category request for Huma.
type CreateCategoryInput struct {
	Body CreateCategoryRequest
}

// TagOutput wraps the tag response for Huma.
type TagOutput struct {
	Body TagResponse
}

// GetTagInput contains parameters for getting a tag.
type GetTagInput struct {
	Slug string `path:"slug" doc:"Tag slug"`
}

// TagDetailResponse is a tag with its place in the category tree.
type TagDetailResponse struct {
	TagResponse
	Parent        *TagResponse  `json:"parent,omitempty" doc:"Parent category, for subcategories"`
	Subcategories []TagResponse `json:"subcategories" doc:"Child categories"`
}

// TagDetailOutput wraps the tag detail response for Huma.
type TagDetailOutput struct {
	Body TagDetailResponse
}

// === Handlers ===

func (s *Server) handleListCategories(ctx context.Context, input *ListCategoriesInput) (*ListCategoriesOutput, error) {
	var (
		categories []*domain.Tag
		err        error
	)
	if input.WithAddons {
		categories, err = s.services.Tags.MainTagsWithAddons(ctx)
	} else {
		categories, err = s.services.Tags.MainTags(ctx)
	}
	if err != nil {
		return nil, err
	}

	resp := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		subs, err := s.services.Tags.SubCategories(ctx, c)
		if err != nil {
			return nil, err
		}
		resp = append(resp, CategoryResponse{
			TagResponse:   toTagResponse(c),
			Subcategories: toTagResponses(subs),
		})
	}

	return &ListCategoriesOutput{
		Body: ListCategoriesResponse{Categories: resp},
	}, nil
}

func (s *Server) handleCreateCategory(ctx context.Context, input *CreateCategoryInput) (*TagOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, domainerrors.Forbidden("Admin access required")
	}

	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	var parent *domain.Tag
	if input.Body.Parent != "" {
		parent, err = s.services.Tags.GetTagBySlug(ctx, input.Body.Parent)
		if err != nil {
			return nil, err
		}
	}

	tag, err := s.services.Tags.CreateCategory(ctx, input.Body.Name, parent)
	if err != nil {
		return nil, err
	}

	s.logger.Info("category created", "tag_id", tag.ID, "slug", tag.Slug, "user", user.Name)
	return &TagOutput{Body: toTagResponse(tag)}, nil
}

func (s *Server) handleGetTag(ctx context.Context, input *GetTagInput) (*TagDetailOutput, error) {
	tag, err := s.services.Tags.GetTagBySlug(ctx, input.Slug)
	if err != nil {
		return nil, err
	}

	resp := TagDetailResponse{TagResponse: toTagResponse(tag)}

	if s.services.Tags.IsSubCategory(tag) {
		parent, err := s.services.Tags.ParentCategory(ctx, tag)
		if err != nil {
			return nil, err
		}
		if parent != nil {
			p := toTagResponse(parent)
			resp.Parent = &p
		}
	}

	subs, err := s.services.Tags.SubCategories(ctx, tag)
	if err != nil {
		return nil, err
	}
	resp.Subcategories = toTagResponses(subs)

	return &TagDetailOutput{Body: resp}, nil
}

func toTagResponse(t *domain.Tag) TagResponse {
	return TagResponse{
		ID:       t.ID,
		Name:     t.Name,
		Slug:     t.Slug,
		Level:    t.Level,
		ParentID: t.ParentID,
		Visible:  t.Visible,
	}
}

func toTagResponses(tags []*domain.Tag) []TagResponse {
	resp := make([]TagResponse, 0, len(tags))
	for _, t := range tags {
		resp = append(resp, toTagResponse(t))
	}
	return resp
}
