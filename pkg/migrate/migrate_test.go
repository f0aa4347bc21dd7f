package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"m/001_create_a.up.sql":   {Data: []byte("CREATE TABLE a (id INTEGER PRIMARY KEY);")},
		"m/001_create_a.down.sql": {Data: []byte("DROP TABLE a;")},
		"m/002_create_b.up.sql":   {Data: []byte("CREATE TABLE b (id INTEGER PRIMARY KEY);")},
		"m/002_create_b.down.sql": {Data: []byte("DROP TABLE b;")},
		"m/README.md":             {Data: []byte("not a migration")},
	}
}

func TestGetMigrations(t *testing.T) {
	migrations, err := NewFSProvider(testFS(), "m", "").GetMigrations()
	if err != nil {
		t.Fatal(err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "create a" || migrations[0].Down == "" {
		t.Errorf("unexpected first migration %+v", migrations[0])
	}
}

func TestMigrateUpAndDown(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, NewFSProvider(testFS(), "m", ""))

	applied, err := m.MigrateUp()
	if err != nil {
		t.Fatal(err)
	}
	if applied != 2 {
		t.Errorf("expected 2 applied migrations, got %d", applied)
	}
	if v, _ := m.GetCurrentVersion(); v != 2 {
		t.Errorf("expected version 2, got %d", v)
	}

	applied, err = m.MigrateUp()
	if err != nil || applied != 0 {
		t.Errorf("second MigrateUp should be a no-op, got %d, %v", applied, err)
	}

	if err := m.MigrateDown(1); err != nil {
		t.Fatal(err)
	}
	if v, _ := m.GetCurrentVersion(); v != 1 {
		t.Errorf("expected version 1 after rollback, got %d", v)
	}
	if _, err := db.Exec("INSERT INTO b (id) VALUES (1)"); err == nil {
		t.Errorf("table b should have been dropped")
	}
	if _, err := db.Exec("INSERT INTO a (id) VALUES (1)"); err != nil {
		t.Errorf("table a should still exist: %v", err)
	}
}
