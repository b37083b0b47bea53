package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures an addon search.
type SearchParams struct {
	Query  string   // Free text
	Tags   []string // Tag slugs, all must match
	Limit  int
	Offset int
	Facets bool // Include tag facet counts
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{Limit: 20, Facets: true}
}

// SearchResult holds the matching addons.
type SearchResult struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"took_ms"`
	Hits   []SearchHit  `json:"hits"`
	Tags   []FacetCount `json:"tags,omitempty"`
}

// SearchHit is a single matching addon.
type SearchHit struct {
	AddonID          int64    `json:"addon_id"`
	Score            float64  `json:"score"`
	Name             string   `json:"name"`
	ComposerName     string   `json:"composer_name,omitempty"`
	ShortDescription string   `json:"short_description,omitempty"`
	Repository       string   `json:"repository,omitempty"`
	Tags             []string `json:"tags,omitempty"`
}

// FacetCount is a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a query against the index.
func (s *AddonIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = DefaultSearchParams().Limit
	}

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	req.SortBy([]string{"-_score", "-updated_at"})
	req.Fields = []string{"name", "composer_name", "short_description", "repository", "tags"}
	if params.Facets {
		req.AddFacet("tags", bleve.NewFacetRequest("tags", 20))
	}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(res.Hits)),
	}

	for _, hit := range res.Hits {
		addonID, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			s.logger.Warn("skipping search hit with foreign id", "id", hit.ID)
			continue
		}

		h := SearchHit{AddonID: addonID, Score: hit.Score}
		h.Name, _ = hit.Fields["name"].(string)
		h.ComposerName, _ = hit.Fields["composer_name"].(string)
		h.ShortDescription, _ = hit.Fields["short_description"].(string)
		h.Repository, _ = hit.Fields["repository"].(string)
		h.Tags = stringList(hit.Fields["tags"])

		result.Hits = append(result.Hits, h)
	}

	if f, ok := res.Facets["tags"]; ok && f.Terms != nil {
		for _, term := range f.Terms.Terms() {
			result.Tags = append(result.Tags, FacetCount{Value: term.Term, Count: term.Count})
		}
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	if q := strings.TrimSpace(params.Query); q != "" {
		nameMatch := bleve.NewMatchQuery(q)
		nameMatch.SetField("name")
		nameMatch.SetBoost(3.0)

		composerMatch := bleve.NewMatchQuery(q)
		composerMatch.SetField("composer_name")
		composerMatch.SetBoost(2.0)

		shortMatch := bleve.NewMatchQuery(q)
		shortMatch.SetField("short_description")
		shortMatch.SetBoost(1.5)

		descMatch := bleve.NewMatchQuery(q)
		descMatch.SetField("description")

		fuzzy := bleve.NewFuzzyQuery(strings.ToLower(q))
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("name")
		fuzzy.SetBoost(0.8)

		text := []query.Query{nameMatch, composerMatch, shortMatch, descMatch, fuzzy}

		// Prefix for autocomplete.
		if len(q) >= 2 {
			prefix := bleve.NewPrefixQuery(strings.ToLower(q))
			prefix.SetField("name")
			prefix.SetBoost(0.5)
			text = append(text, prefix)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(text...))
	}

	for _, slug := range params.Tags {
		tq := bleve.NewTermQuery(slug)
		tq.SetField("tags")
		queries = append(queries, tq)
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}

// stringList reads a stored field that holds one or many strings.
func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, s := range t {
			if str, ok := s.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
