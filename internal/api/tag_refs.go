package api

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/addonsdir/addons-server/internal/domain"
)

// TagRefInput is one entry of a desired tag list: a tag id, a tag name
// (all-digit strings are ids) or an object {"id": n}.
type TagRefInput struct {
	domain.TagRef
}

// Schema describes the three accepted forms.
func (TagRefInput) Schema(_ huma.Registry) *huma.Schema {
	minLen := 1

	byID := &huma.Schema{Type: huma.TypeInteger, Description: "Tag ID"}
	byName := &huma.Schema{Type: huma.TypeString, MinLength: &minLen, Description: "Tag name, or tag ID as digits"}
	byObject := &huma.Schema{
		Type: huma.TypeObject,
		Properties: map[string]*huma.Schema{
			"id": {Type: huma.TypeInteger},
		},
		Required: []string{"id"},
	}
	for _, s := range []*huma.Schema{byID, byName, byObject} {
		s.PrecomputeMessages()
	}

	schema := &huma.Schema{
		Description: "Tag reference",
		OneOf:       []*huma.Schema{byID, byName, byObject},
	}
	schema.PrecomputeMessages()
	return schema
}

func tagRefsFromInput(in []TagRefInput) []domain.TagRef {
	refs := make([]domain.TagRef, 0, len(in))
	for _, r := range in {
		refs = append(refs, r.TagRef)
	}
	return refs
}
