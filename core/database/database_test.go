package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSelectApplied(t *testing.T) {
	files := []string{"0001_a.up.sql", "0002_b.up.sql", "0003_c.up.sql"}
	tests := []struct {
		from, to uint64
		want     int
	}{
		{0, 3, 3},
		{1, 3, 2},
		{3, 3, 0},
		{2, 1, 0},
	}
	for _, tt := range tests {
		if got := len(selectApplied(files, tt.from, tt.to)); got != tt.want {
			t.Errorf("selectApplied(%d, %d) = %d files, want %d", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestEmbeddedMigrationsPerDriver(t *testing.T) {
	for _, driver := range []string{DriverPostgres, DriverSQLite} {
		files := listMigrationFiles(migrationsFS, filepath.ToSlash(filepath.Join("migrations", driver)))
		if len(files) == 0 {
			t.Errorf("%s: no embedded migrations", driver)
		}
	}
}

func TestDSNRejectsUnknownDriver(t *testing.T) {
	if _, err := (Config{Driver: "mysql"}).DSN(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := (Config{Driver: "mysql"}).MigrateURL(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestMigrateURLEscapesCredentials(t *testing.T) {
	cfg := Config{Driver: DriverPostgres, Host: "db", Port: "5432", User: "bot", Password: "p@ss word", Name: "leads", SSLMode: "disable"}
	got, err := cfg.MigrateURL()
	if err != nil {
		t.Fatal(err)
	}
	if want := "postgres://bot:p%40ss%20word@db:5432/leads?sslmode=disable"; got != want {
		t.Fatalf("MigrateURL = %q, want %q", got, want)
	}
}

func TestSQLiteConnectAndMigrate(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "records.db")}

	if err := RunMigrations(ctx, cfg); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	// Second run is a no-op.
	if err := RunMigrations(ctx, cfg); err != nil {
		t.Fatalf("RunMigrations again: %v", err)
	}

	db, err := Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.GetContext(ctx, &n, "SELECT COUNT(*) FROM flow_records"); err != nil {
		t.Fatalf("query migrated table: %v", err)
	}
	if n != 0 {
		t.Fatalf("rows = %d, want 0", n)
	}
}
