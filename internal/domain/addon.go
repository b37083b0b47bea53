// Package domain contains the core entities of the addons directory.
package domain

import "time"

// Addon is a distributable package tracked by the directory.
// ID is zero until the addon has been persisted.
type Addon struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	ComposerName     string     `json:"composer_name"`
	UserID           int64      `json:"user_id"`
	Repository       string     `json:"repository"` // Canonical URL, unique across addons
	ShortDescription string     `json:"short_description"`
	Description      string     `json:"description"`
	Demo             string     `json:"demo,omitempty"`
	DefaultLicense   string     `json:"default_license"`
	Versions         []*Version `json:"versions,omitempty"`
	Tags             []TagRef   `json:"tags,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsPersisted reports whether the addon has been stored.
func (a *Addon) IsPersisted() bool {
	return a.ID != 0
}

// HasVersion reports whether the addon already carries the given version string.
func (a *Addon) HasVersion(version string) bool {
	for _, v := range a.Versions {
		if v.Version == version {
			return true
		}
	}
	return false
}

// Touch updates the UpdatedAt timestamp.
func (a *Addon) Touch() {
	a.UpdatedAt = time.Now().UTC()
}
