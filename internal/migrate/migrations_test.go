package migrate_test

import (
	"testing"

	"bountyline/internal/db"
	"bountyline/internal/migrate"
)

func TestMigrateIsIdempotent(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("second run should be a no-op: %v", err)
	}

	// exactly one version row, advanced past zero
	var count, version int
	if err := conn.QueryRow(`SELECT COUNT(*), MAX(version) FROM schema_version`).Scan(&count, &version); err != nil {
		t.Fatalf("read schema_version: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single version row, got %d", count)
	}
	if version < 1 {
		t.Fatalf("expected version >= 1, got %d", version)
	}

	// migrated tables are usable
	if _, err := conn.Exec(`INSERT INTO skills(id,name,created_at) VALUES ('skill_x','x','2026-01-01T00:00:00Z')`); err != nil {
		t.Fatalf("insert into migrated table: %v", err)
	}
}
