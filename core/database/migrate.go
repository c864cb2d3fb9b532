package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/sprintbot/core/logger"
	"github.com/m3rciful/sprintbot/migrations"
)

// RunMigrations brings the schema up to date. Migrations come from
// cfg.MigrationsDir when set, otherwise from the SQL embedded in the binary.
func RunMigrations(cfg Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := WaitForPostgres(ctx, cfg.DSN()); err != nil {
		logger.MIG.Error("db not ready", slog.String("event", "db.wait"), slog.String("err", err.Error()))
		return fmt.Errorf("database not ready: %w", err)
	}

	src, files, where, err := migrationSource(cfg.MigrationsDir)
	if err != nil {
		return err
	}
	logMigrationFiles("resolve", files, slog.String("source", where))

	m, err := migrate.NewWithSourceInstance("migrations", src, cfg.URL())
	if err != nil {
		logger.MIG.Error("init failed", slog.String("event", "db.migrate"), slog.String("err", err.Error()))
		return fmt.Errorf("initialize migrations: %w", err)
	}
	defer m.Close()

	from, _, _ := m.Version()
	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.MIG.Error("migration failed",
			slog.String("event", "apply"),
			slog.String("err", err.Error()),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
		return fmt.Errorf("apply migrations: %w", err)
	}
	to, _, _ := m.Version()

	applied := between(files, uint64(from), uint64(to))
	if len(applied) > 0 {
		logMigrationFiles("apply", applied)
	}
	logger.MIG.Info("migrations summary",
		slog.String("event", "summary"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

// migrationSource opens dir, or the embedded files when dir is empty, and
// lists the up migrations it contains.
func migrationSource(dir string) (source.Driver, []string, string, error) {
	var fsys fs.FS = migrations.FS
	where := "embedded"
	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, nil, "", fmt.Errorf("resolve migrations dir: %w", err)
		}
		fsys, where = os.DirFS(abs), abs
	}
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, nil, "", fmt.Errorf("open migrations %s: %w", where, err)
	}
	return src, upFiles(fsys), where, nil
}

func logMigrationFiles(event string, files []string, extra ...slog.Attr) {
	preview, cut := logger.SummarizeStrings(files, 6)
	attrs := append(extra,
		slog.Int("files_total", len(files)),
		slog.String("files_preview", preview),
	)
	if cut {
		attrs = append(attrs, slog.Bool("files_truncated", true))
	}
	logger.LogEvent(context.Background(), logger.MIG, slog.LevelDebug, event, attrs...)
}

// upFiles returns the sorted names of the *.up.sql files in fsys.
func upFiles(fsys fs.FS) []string {
	names, _ := fs.Glob(fsys, "*.up.sql")
	slices.Sort(names)
	return names
}

func version(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

// between returns the files whose version lies in (from, to].
func between(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if v := version(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
