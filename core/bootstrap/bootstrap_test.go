package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/sprintbot/core/config"
	coredatabase "github.com/m3rciful/sprintbot/core/database"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunMemorySkipsDatabase(t *testing.T) {
	res, err := Run(Options{
		Config:     &coreconfig.Config{},
		Driver:     "Memory",
		LoggerInit: noLogger,
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			t.Fatal("connect must not be called")
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Driver != DriverMemory || res.DB != nil {
		t.Fatalf("result = %+v", res)
	}
}

func TestRunRejectsUnknownDriver(t *testing.T) {
	if _, err := Run(Options{Config: &coreconfig.Config{}, Driver: "mongo", LoggerInit: noLogger}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunMigrateFailureClosesDB(t *testing.T) {
	db, err := sqlx.Open("postgres", "host=127.0.0.1 sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	_, err = Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Connect:    func(coredatabase.Config) (*sqlx.DB, error) { return db, nil },
		Migrate:    func(coredatabase.Config) error { return boom },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if pingErr := db.Ping(); pingErr == nil || pingErr.Error() != "sql: database is closed" {
		t.Fatalf("db should be closed, ping = %v", pingErr)
	}
}

func TestRunSeedersStopsOnError(t *testing.T) {
	var calls []int
	seeders := []Seeder{
		SeederFunc(func(context.Context, Storage) error { calls = append(calls, 1); return nil }),
		SeederFunc(func(context.Context, Storage) error { calls = append(calls, 2); return errors.New("bad fixture") }),
		SeederFunc(func(context.Context, Storage) error { calls = append(calls, 3); return nil }),
	}
	if err := RunSeeders(context.Background(), nil, seeders...); err == nil {
		t.Fatal("expected error")
	}
	if len(calls) != 2 {
		t.Fatalf("calls = %v", calls)
	}
}
