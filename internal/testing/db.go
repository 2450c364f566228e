// Package testing provides test doubles and helpers shared across packages.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/unocoin/internal/database"
)

// NewTestDB creates a migrated temp-file database for the given schema name. The database is
// closed when the test ends. Unknown names get an empty database.
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	profile := database.ProfileCache
	if name == database.NameSession {
		profile = database.ProfileDurable
	}

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "test_"+name+".db"),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	return db
}
