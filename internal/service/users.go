package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"

	"github.com/addonsdir/addons-server/internal/auth"
	"github.com/addonsdir/addons-server/internal/domain"
	"github.com/addonsdir/addons-server/internal/errors"
	"github.com/addonsdir/addons-server/internal/id"
	"github.com/addonsdir/addons-server/internal/store"
)

// UserService looks up accounts and checks API tokens.
type UserService struct {
	store  store.UserStore
	logger *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(store store.UserStore, logger *slog.Logger) *UserService {
	return &UserService{store: store, logger: logger}
}

// FindUserByName returns the user with the exact name.
// Returns an errors.ErrNotFound error when there is none.
func (s *UserService) FindUserByName(ctx context.Context, name string) (*domain.User, error) {
	u, err := s.store.GetUserByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFoundf("user %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// Authenticate returns the user when token equals the stored API token exactly.
func (s *UserService) Authenticate(ctx context.Context, name, token string) (*domain.User, error) {
	u, err := s.FindUserByName(ctx, name)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, errors.InvalidCredentials("Invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if !TokensEqual(u.APIToken, token) {
		return nil, errors.InvalidCredentials("Invalid credentials")
	}
	return u, nil
}

// CreateIdentity builds the identity for an authenticated user.
func (s *UserService) CreateIdentity(u *domain.User) auth.Identity {
	return auth.NewIdentity(u)
}

// CreateUser registers a user with a freshly generated API token.
func (s *UserService) CreateUser(ctx context.Context, name, email string, role domain.Role) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Validation("user name is required")
	}
	if role == "" {
		role = domain.RoleMember
	}
	if role != domain.RoleAdmin && role != domain.RoleMember {
		return nil, errors.Validationf("unknown role %q", role)
	}

	token, err := id.APIToken()
	if err != nil {
		return nil, err
	}

	u := &domain.User{Name: name, Email: email, APIToken: token, Role: role}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, errors.AlreadyExists(fmt.Sprintf("user %q already exists", name))
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user created", "user_id", u.ID, "name", u.Name, "role", u.Role)
	return u, nil
}

// TokensEqual compares API tokens for exact equality in constant time.
// An account without a token never matches.
func TokensEqual(stored, given string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}
