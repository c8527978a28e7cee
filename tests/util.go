package testutil

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/storage/database"
	"github.com/trezcool/shule/storage/kv"
)

// PasswordCost keeps bcrypt fast in tests.
const PasswordCost = bcrypt.MinCost

// OpenDB returns a migrated in-memory sqlite database, closed when the test ends.
func OpenDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Open(&core.Config{Database: core.DatabaseConfig{Engine: "sqlite3", Name: ":memory:"}})
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	return db
}

// NewDirectory returns a user.Directory on a fresh memory store.
func NewDirectory() (*user.Directory, *kv.MemoryStore) {
	store := kv.NewMemoryStore()
	return user.NewDirectory(store, core.NopLogger(), PasswordCost), store
}

func CreateUser(t *testing.T, repo user.Repository, name, email, pwd, role string) user.User {
	t.Helper()
	usr := user.User{
		Name:  name,
		Email: email,
		Role:  role,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd, PasswordCost); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
