// Package search provides full-text addon search using Bleve.
package search

import (
	"strconv"

	"github.com/addonsdir/addons-server/internal/domain"
)

// AddonDocument is the indexed form of an addon. Tag slugs are denormalized
// into the document so tag filters need no database round trip.
type AddonDocument struct {
	AddonID          int64
	Name             string
	ComposerName     string
	ShortDescription string
	Description      string
	Repository       string
	License          string
	Tags             []string // Tag slugs
	UpdatedAt        int64    // Unix millis
}

// NewAddonDocument builds a document from an addon and its tag slugs.
func NewAddonDocument(a *domain.Addon, tagSlugs []string) *AddonDocument {
	return &AddonDocument{
		AddonID:          a.ID,
		Name:             a.Name,
		ComposerName:     a.ComposerName,
		ShortDescription: a.ShortDescription,
		Description:      a.Description,
		Repository:       a.Repository,
		License:          a.DefaultLicense,
		Tags:             tagSlugs,
		UpdatedAt:        a.UpdatedAt.UnixMilli(),
	}
}

// DocID returns the Bleve document id.
func (d *AddonDocument) DocID() string {
	return docID(d.AddonID)
}

func docID(addonID int64) string {
	return strconv.FormatInt(addonID, 10)
}

// ToMap converts the document to a map whose keys match the index mapping.
func (d *AddonDocument) ToMap() map[string]any {
	m := map[string]any{
		"name":              d.Name,
		"composer_name":     d.ComposerName,
		"short_description": d.ShortDescription,
		"description":       d.Description,
		"repository":        d.Repository,
		"license":           d.License,
		"updated_at":        d.UpdatedAt,
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	return m
}
