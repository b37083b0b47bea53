// Package importer pulls addon metadata and versions from source-code hosts.
package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/addonsdir/addons-server/internal/domain"
)

// Sentinel errors for importer operations.
var (
	ErrUnsupportedURL = errors.New("importer: unsupported repository url")
	ErrNotFound       = errors.New("importer: repository not found")
	ErrRateLimited    = errors.New("importer: rate limited by provider")
	ErrServer         = errors.New("importer: provider server error")
)

// Metadata is what an importer knows about a repository's head.
type Metadata struct {
	Name             string
	ComposerName     string
	ShortDescription string
	Description      string
	License          string
	Repository       string // Canonical URL
}

// Importer reads one repository.
type Importer interface {
	// RepositoryURL returns the canonical repository URL.
	RepositoryURL() string
	// Fetch reads repository metadata from the default branch.
	Fetch(ctx context.Context) (*Metadata, error)
	// ImportVersions returns every release version, newest first.
	ImportVersions(ctx context.Context) ([]*domain.Version, error)
}

// Provider recognizes and opens repositories of one hosting service.
type Provider interface {
	Name() string
	IsValidURL(raw string) bool
	NormalizeURL(raw string) (string, error)
	NewImporter(normalized string) (Importer, error)
}

// Manager dispatches repository URLs to the provider that understands them.
type Manager struct {
	providers []Provider
}

// NewManager creates a manager over the given providers, tried in order.
func NewManager(providers ...Provider) *Manager {
	return &Manager{providers: providers}
}

// IsValidRepositoryURL reports whether any provider recognizes the URL.
func (m *Manager) IsValidRepositoryURL(raw string) bool {
	return m.providerFor(raw) != nil
}

// NormalizeURL returns the canonical form of a repository URL.
func (m *Manager) NormalizeURL(raw string) (string, error) {
	p := m.providerFor(raw)
	if p == nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedURL, raw)
	}
	return p.NormalizeURL(raw)
}

// CreateFromURL returns an importer for the repository.
func (m *Manager) CreateFromURL(raw string) (Importer, error) {
	p := m.providerFor(raw)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, raw)
	}

	normalized, err := p.NormalizeURL(raw)
	if err != nil {
		return nil, err
	}
	return p.NewImporter(normalized)
}

func (m *Manager) providerFor(raw string) Provider {
	for _, p := range m.providers {
		if p.IsValidURL(raw) {
			return p
		}
	}
	return nil
}
