package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/addonsdir/addons-server/internal/domain"
	"github.com/addonsdir/addons-server/internal/store"
)

// userColumns must match the scan order in scanUser.
const userColumns = `id, name, email, api_token, role`

func scanUser(scanner interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	if err := scanner.Scan(&u.ID, &u.Name, &u.Email, &u.APIToken, &role); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

// CreateUser inserts a new user and sets u.ID.
// Returns store.ErrAlreadyExists on duplicate name.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	if u.Role == "" {
		u.Role = domain.RoleMember
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (name, email, api_token, role, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.Name,
		u.Email,
		u.APIToken,
		string(u.Role),
		formatTime(time.Now()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}

	u.ID, err = res.LastInsertId()
	return err
}

// GetUser retrieves a user by ID.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return u, err
}

// GetUserByName retrieves a user by exact name.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) GetUserByName(ctx context.Context, name string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE name = ?`, name)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return u, err
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
