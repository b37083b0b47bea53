package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/addonsdir/addons-server/internal/auth"
	"github.com/addonsdir/addons-server/internal/domain"
	domainerrors "github.com/addonsdir/addons-server/internal/errors"
	"github.com/addonsdir/addons-server/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// userKey is the context key for the authenticated user.
const userKey ctxKey = "user"

// GetUser returns the authenticated user from context.
// Returns 401 error if the request carried no valid credentials.
func GetUser(ctx context.Context) (*domain.User, error) {
	user, ok := ctx.Value(userKey).(*domain.User)
	if !ok || user == nil {
		return nil, huma.Error401Unauthorized("Authentication required")
	}
	return user, nil
}

func setUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// authMiddleware reads Basic credentials (user name and API token) and
// stores the user in context. Requests without valid credentials continue
// anonymously; handlers use RequireUser to reject them.
func authMiddleware(users *service.UserService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name, token, ok := r.BasicAuth()
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.Authenticate(r.Context(), name, token)
			if err != nil {
				if !domainerrors.Is(err, domainerrors.ErrInvalidCredentials) {
					logger.Error("authentication lookup failed", "user", name, "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(setUser(r.Context(), user)))
		})
	}
}

// RequireUser returns the authenticated user or a 401 error.
func (s *Server) RequireUser(ctx context.Context) (*domain.User, error) {
	return GetUser(ctx)
}

// RequireAddonManager returns the authenticated user's identity when they
// own the addon or are an admin.
func (s *Server) RequireAddonManager(ctx context.Context, addon *domain.Addon) (auth.Identity, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return auth.Identity{}, err
	}

	if !user.Owns(addon) && !user.IsAdmin() {
		return auth.Identity{}, domainerrors.Forbidden("Only the addon owner can change it")
	}

	return s.services.Users.CreateIdentity(user), nil
}
