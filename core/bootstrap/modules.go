package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/sprintbot/core/logger"
)

// Storage is whatever store the seeders receive; each seeder asserts the
// interface it needs.
type Storage any

// Seeder loads fixture data into storage.
type Seeder interface {
	Seed(ctx context.Context, storage Storage) error
}

// SeederFunc lets a plain function act as a Seeder.
type SeederFunc func(ctx context.Context, storage Storage) error

func (f SeederFunc) Seed(ctx context.Context, storage Storage) error { return f(ctx, storage) }

// RunSeeders runs seeders in order. Nil entries are skipped and the first
// failure stops the run.
func RunSeeders(ctx context.Context, storage Storage, seeders ...Seeder) error {
	for i, s := range seeders {
		if s == nil {
			continue
		}
		start := time.Now()
		err := s.Seed(ctx, storage)
		attrs := []slog.Attr{slog.Int("seeder", i), slog.Duration("duration", logger.RoundMS(time.Since(start)))}
		if err != nil {
			logger.Error(ctx, logger.CompSeed, "seed.fail", append(attrs, slog.String("err", err.Error()))...)
			return fmt.Errorf("bootstrap: seeder %d: %w", i, err)
		}
		logger.Info(ctx, logger.CompSeed, "seed.ok", attrs...)
	}
	return nil
}
