// Package auth builds the identity attached to privileged operations.
package auth

import "github.com/addonsdir/addons-server/internal/domain"

// Identity is the authenticated principal behind an operation.
type Identity struct {
	UserID int64    `json:"user_id"`
	Name   string   `json:"name"`
	Roles  []string `json:"roles"`
}

// NewIdentity derives an identity from a user.
func NewIdentity(u *domain.User) Identity {
	role := u.Role
	if role == "" {
		role = domain.RoleMember
	}
	return Identity{
		UserID: u.ID,
		Name:   u.Name,
		Roles:  []string{string(role)},
	}
}

// HasRole reports whether the identity carries role.
func (i Identity) HasRole(role domain.Role) bool {
	for _, r := range i.Roles {
		if r == string(role) {
			return true
		}
	}
	return false
}

// LogAttrs returns key/value pairs for slog.
func (i Identity) LogAttrs() []any {
	return []any{"user_id", i.UserID, "user", i.Name, "roles", i.Roles}
}
