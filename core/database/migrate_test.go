package database

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"testing/fstest"
)

func TestUpFilesAndBetween(t *testing.T) {
	fsys := fstest.MapFS{
		"000003_tasks.up.sql":   {Data: []byte("--")},
		"000001_users.up.sql":   {Data: []byte("--")},
		"000001_users.down.sql": {Data: []byte("--")},
		"000002_sprints.up.sql": {Data: []byte("--")},
		"README.md":             {Data: []byte("x")},
	}
	files := upFiles(fsys)
	want := []string{"000001_users.up.sql", "000002_sprints.up.sql", "000003_tasks.up.sql"}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("files = %v", files)
	}
	if got := between(files, 1, 3); !reflect.DeepEqual(got, want[1:]) {
		t.Fatalf("between(1,3) = %v", got)
	}
	if got := between(files, 3, 3); len(got) != 0 {
		t.Fatalf("no-op = %v", got)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	src, files, where, err := migrationSource("")
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	if where != "embedded" || len(files) != 3 || files[0] != "000001_teams_users.up.sql" {
		t.Fatalf("embedded = %s %v", where, files)
	}
	first, err := src.First()
	if err != nil || first != 1 {
		t.Fatalf("first version = %d, %v", first, err)
	}
}

func TestMigrationsDirOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "000007_extra.up.sql"), []byte("SELECT 1;"), 0o600); err != nil {
		t.Fatal(err)
	}
	src, files, where, err := migrationSource(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	if where != dir || len(files) != 1 {
		t.Fatalf("override = %s %v", where, files)
	}
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{User: "bot", Password: "pw", Host: "db", Port: "5432", Name: "tracker"}
	if got := cfg.URL(); got != "postgres://bot:pw@db:5432/tracker?sslmode=disable" {
		t.Fatalf("URL = %q", got)
	}
	if got := cfg.DSN(); got != "user=bot password=pw host=db port=5432 dbname=tracker sslmode=disable" {
		t.Fatalf("DSN = %q", got)
	}
}
