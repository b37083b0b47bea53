// Package main provides a tool to seed the database with a user and the
// base category tree.
//
// Usage:
//
//	go run ./cmd/seed -data-path ~/addons -user admin -email admin@example.com -admin
//
// The created user's API token is printed once; it is the password for both
// the push webhook and the JSON API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/addonsdir/addons-server/internal/domain"
	"github.com/addonsdir/addons-server/internal/errors"
	"github.com/addonsdir/addons-server/internal/logger"
	"github.com/addonsdir/addons-server/internal/service"
	"github.com/addonsdir/addons-server/internal/store/sqlite"
	"github.com/addonsdir/addons-server/internal/util"
)

// baseCategories maps each top-level category to its subcategories.
var baseCategories = []struct {
	name string
	subs []string
}{
	{"Forms", []string{"Date Pickers", "Validation"}},
	{"Grids", nil},
	{"Database", []string{"Migrations"}},
	{"Security", nil},
	{"Testing", nil},
	{"Tools", []string{"Debugging"}},
}

func main() {
	dataPath := flag.String("data-path", os.ExpandEnv("$HOME/addons"), "Directory holding addons.db")
	userName := flag.String("user", "", "Create a user with this name")
	email := flag.String("email", "", "Email for the created user")
	admin := flag.Bool("admin", false, "Give the created user the admin role")
	categories := flag.Bool("categories", true, "Create the base category tree")
	flag.Parse()

	log := logger.New(logger.Config{Level: logger.ParseLevel("warn"), Environment: "development"})

	if err := os.MkdirAll(*dataPath, 0o755); err != nil {
		fatalf("create data directory: %v", err)
	}
	st, err := sqlite.Open(filepath.Join(*dataPath, "addons.db"), log.Logger)
	if err != nil {
		fatalf("open store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	if *userName != "" {
		role := domain.RoleMember
		if *admin {
			role = domain.RoleAdmin
		}
		users := service.NewUserService(st, log.Logger)
		u, err := users.CreateUser(ctx, *userName, *email, role)
		if err != nil {
			fatalf("create user: %v", err)
		}
		fmt.Printf("Created %s %q (id %d)\n", u.Role, u.Name, u.ID)
		fmt.Printf("API token: %s\n", u.APIToken)
	}

	if *categories {
		// The search index is rebuilt by the server on startup if needed.
		tags := service.NewTagService(st, nil, log.Logger)
		created := 0
		for _, c := range baseCategories {
			parent, ok := createCategory(ctx, tags, c.name, nil)
			created += ok
			for _, sub := range c.subs {
				_, ok := createCategory(ctx, tags, sub, parent)
				created += ok
			}
		}
		fmt.Printf("Created %d categories\n", created)
	}
}

// createCategory creates the tag or loads it if it already exists. The int
// result is 1 when a tag was created.
func createCategory(ctx context.Context, tags *service.TagService, name string, parent *domain.Tag) (*domain.Tag, int) {
	tag, err := tags.CreateCategory(ctx, name, parent)
	if err == nil {
		return tag, 1
	}
	if !errors.Is(err, errors.ErrAlreadyExists) {
		fatalf("create category %q: %v", name, err)
	}
	tag, err = tags.GetTagBySlug(ctx, util.Webalize(name))
	if err != nil {
		fatalf("load category %q: %v", name, err)
	}
	return tag, 0
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
