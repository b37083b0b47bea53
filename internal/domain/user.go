package domain

// Role is a user's permission level.
type Role string

const (
	// RoleAdmin may manage any addon.
	RoleAdmin Role = "admin"
	// RoleMember manages only the addons they own.
	RoleMember Role = "member"
)

// User is an account that owns addons and calls the webhook.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	APIToken string `json:"-"`
	Role     Role   `json:"role"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Owns reports whether the user owns the addon.
func (u *User) Owns(a *Addon) bool {
	return a.UserID == u.ID
}
