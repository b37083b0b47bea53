// Package store defines the persistence contracts of the addons directory.
package store

import (
	"context"
	"time"

	"github.com/addonsdir/addons-server/internal/domain"
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetUserByName(ctx context.Context, name string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
}

// AddonStore persists addons.
type AddonStore interface {
	// CreateAddon inserts the addon, its versions, any new tags and the tag
	// associations in one transaction. Each link's ID is set to the tag it
	// resolved to. On failure nothing is written, addon.ID is reset to 0 and
	// links to new tags lose their ID.
	CreateAddon(ctx context.Context, addon *domain.Addon, links []TagLink) error
	UpdateAddon(ctx context.Context, addon *domain.Addon) error
	GetAddon(ctx context.Context, id int64) (*domain.Addon, error)
	GetAddonByRepository(ctx context.Context, repository string) (*domain.Addon, error)
	ListAddons(ctx context.Context, filter AddonFilter) ([]*domain.Addon, error)
	TouchAddon(ctx context.Context, id int64, at time.Time) error
}

// VersionStore persists addon versions.
type VersionStore interface {
	CreateVersion(ctx context.Context, v *domain.Version) error
	ListVersions(ctx context.Context, addonID int64) ([]*domain.Version, error)
}

// TagStore persists tags and the addon/tag association.
type TagStore interface {
	// CreateTag inserts a tag. Returns ErrAlreadyExists when the slug is taken.
	CreateTag(ctx context.Context, t *domain.Tag) error
	GetTag(ctx context.Context, id int64) (*domain.Tag, error)
	GetTagBySlug(ctx context.Context, slug string) (*domain.Tag, error)
	ListTagsByLevel(ctx context.Context, level int) ([]*domain.Tag, error)
	ListTagsWithAddons(ctx context.Context, level int) ([]*domain.Tag, error)
	ListChildTags(ctx context.Context, parentID int64) ([]*domain.Tag, error)
	GetTagsByIDs(ctx context.Context, ids []int64) ([]*domain.Tag, error)

	GetAddonTagIDs(ctx context.Context, addonID int64) ([]int64, error)
	// DeleteAddonTags removes the given associations in a single statement.
	DeleteAddonTags(ctx context.Context, addonID int64, tagIDs []int64) error
	InsertAddonTag(ctx context.Context, addonID, tagID int64) error
}

// Store is the full persistence surface.
type Store interface {
	UserStore
	AddonStore
	VersionStore
	TagStore

	Ping(ctx context.Context) error
	Close() error
}

// AddonFilter narrows ListAddons. Zero values mean "no filter".
type AddonFilter struct {
	TagID int64  // Only addons associated with this tag
	Query string // Substring of name or short description
}

// TagLink is one requested tag association for CreateAddon: either the ID of
// an existing tag, or a Tag to get-or-create by slug.
type TagLink struct {
	ID  int64
	Tag *domain.Tag
}

// LinkIDs builds links to existing tags.
func LinkIDs(ids ...int64) []TagLink {
	links := make([]TagLink, len(ids))
	for i, id := range ids {
		links[i] = TagLink{ID: id}
	}
	return links
}
