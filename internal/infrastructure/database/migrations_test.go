package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/nerrad567/gray-logic-linewriter/migrations"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260118_120000_create_users.up.sql":   {Data: []byte("CREATE TABLE test_users (id INTEGER PRIMARY KEY);")},
		"20260118_120000_create_users.down.sql": {Data: []byte("DROP TABLE test_users;")},
		"20260119_080000_add_notes.up.sql":      {Data: []byte("CREATE TABLE test_notes (id INTEGER PRIMARY KEY);")},
		"README.md":                             {Data: []byte("ignored")},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&n)
	if err != nil {
		t.Fatalf("checking table %s: %v", name, err)
	}
	return n == 1
}

// TestMigrate verifies migration application.
func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	if !tableExists(t, db, "test_users") || !tableExists(t, db, "test_notes") {
		t.Fatal("migrations did not create tables")
	}

	applied, pending, err := db.MigrationStatus(ctx, testMigrations())
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("expected 2 applied migrations, got %d", len(applied))
	}
	if len(pending) != 0 {
		t.Errorf("expected 0 pending migrations, got %d", len(pending))
	}
	if applied[0].Version != "20260118_120000" {
		t.Errorf("applied out of order: %v", applied)
	}

	// Running again should be idempotent
	if err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

// TestMigrateDown verifies migration rollback.
func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := testMigrations()
	delete(fsys, "20260119_080000_add_notes.up.sql")

	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx, fsys); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "test_users") {
		t.Error("test_users should be dropped")
	}

	_, pending, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("expected 1 pending migration, got %d", len(pending))
	}
}

func TestMigrateDown_NoDownSQL(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	// Latest migration (add_notes) has no down file.
	if err := db.MigrateDown(ctx, testMigrations()); err == nil {
		t.Error("MigrateDown() should fail without down SQL")
	}
}

func TestMigrateNoMigrations(t *testing.T) {
	db := openTestDB(t)

	if err := db.Migrate(context.Background(), nil); err != nil {
		t.Errorf("Migrate(nil) error = %v", err)
	}
	if err := db.Migrate(context.Background(), fstest.MapFS{}); err != nil {
		t.Errorf("Migrate(empty) error = %v", err)
	}
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"20260118_120000_ok.up.sql":     {Data: []byte("CREATE TABLE ok_table (id INTEGER);")},
		"20260118_130000_broken.up.sql": {Data: []byte("CREATE TABLE half (id INTEGER); NOT SQL;")},
	}

	if err := db.Migrate(ctx, fsys); err == nil {
		t.Fatal("Migrate() should fail on broken SQL")
	}
	if !tableExists(t, db, "ok_table") {
		t.Error("earlier migration should stay committed")
	}

	applied, _, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 1 {
		t.Errorf("expected 1 applied migration, got %d", len(applied))
	}
}

// TestEmbeddedMigrations applies the shipped schema.
func TestEmbeddedMigrations(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "spool_entries") {
		t.Error("spool_entries not created")
	}
	if err := db.MigrateDown(ctx, migrations.FS); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "spool_entries") {
		t.Error("spool_entries should be dropped")
	}
}

func TestMigrate_OrphanDownFile(t *testing.T) {
	db := openTestDB(t)

	fsys := fstest.MapFS{
		"20260118_120000_orphan.down.sql": {Data: []byte("DROP TABLE nothing;")},
	}
	if err := db.Migrate(context.Background(), fsys); err == nil {
		t.Error("Migrate() should fail when a version has no up file")
	}
}

func TestParseMigrationFile(t *testing.T) {
	tests := []struct {
		filename string
		want     migrationFile
		wantOk   bool
	}{
		{"20261018_120000_spool.up.sql", migrationFile{version: "20261018_120000", name: "spool", up: true}, true},
		{"20261018_120000_spool.down.sql", migrationFile{version: "20261018_120000", name: "spool"}, true},
		{"20260118_120000_add_attempts_to_spool.up.sql", migrationFile{version: "20260118_120000", name: "add_attempts_to_spool", up: true}, true},
		{"readme.txt", migrationFile{}, false},
		{"20261018_120000_spool.sql", migrationFile{}, false},
		{"invalid.up.sql", migrationFile{}, false},
		{"2026_120000_short.up.sql", migrationFile{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, ok := parseMigrationFile(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if got != tt.want {
				t.Errorf("parseMigrationFile(%q) = %+v, want %+v", tt.filename, got, tt.want)
			}
		})
	}
}
