package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/addonsdir/addons-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchAddons",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search addons",
		Description: "Full-text search over addon names and descriptions, with tag facets",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// SearchInput contains search parameters.
type SearchInput struct {
	Query  string `query:"q" maxLength:"200" doc:"Search text"`
	Tags   string `query:"tags" doc:"Comma-separated tag slugs, all must match"`
	Limit  int    `query:"limit" minimum:"0" maximum:"100" doc:"Maximum hits (default 20)"`
	Offset int    `query:"offset" minimum:"0" doc:"Hits to skip"`
}

// SearchOutput wraps the search result for Huma.
type SearchOutput struct {
	Body *search.SearchResult
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	if s.services.Search == nil {
		return nil, huma.Error503ServiceUnavailable("Search is not available")
	}

	params := search.DefaultSearchParams()
	params.Query = input.Query
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	params.Offset = input.Offset
	for slug := range strings.SplitSeq(input.Tags, ",") {
		if slug = strings.TrimSpace(slug); slug != "" {
			params.Tags = append(params.Tags, slug)
		}
	}

	result, err := s.services.Search.Search(ctx, params)
	if err != nil {
		s.logger.Error("search failed", "query", input.Query, "error", err)
		return nil, huma.Error500InternalServerError("Search failed")
	}

	return &SearchOutput{Body: result}, nil
}
