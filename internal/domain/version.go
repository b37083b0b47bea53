package domain

import "time"

// Version is a single released version of an addon.
type Version struct {
	ID              int64     `json:"id"`
	AddonID         int64     `json:"addon_id"`
	Version         string    `json:"version"`
	License         string    `json:"license"`
	ComposerJSON    string    `json:"composer_json,omitempty"` // Raw manifest at this version
	DistType        string    `json:"dist_type,omitempty"`
	DistURL         string    `json:"dist_url,omitempty"`
	SourceType      string    `json:"source_type,omitempty"`
	SourceURL       string    `json:"source_url,omitempty"`
	SourceReference string    `json:"source_reference,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}
