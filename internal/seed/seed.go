// Package seed loads teams and users from a YAML fixture into a store.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/m3rciful/sprintbot/core/bootstrap"
	"github.com/m3rciful/sprintbot/core/logger"
	"github.com/m3rciful/sprintbot/internal/domain"
)

// Team is a fixture team.
type Team struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// Fixture is the seed file layout.
type Fixture struct {
	Teams []Team        `yaml:"teams"`
	Users []domain.User `yaml:"users"`
}

// Load reads and validates a fixture.
func Load(path string) (Fixture, error) {
	var fx Fixture
	data, err := os.ReadFile(path)
	if err != nil {
		return fx, fmt.Errorf("read fixture: %w", err)
	}
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return fx, fmt.Errorf("parse fixture: %w", err)
	}
	teams := make(map[int64]bool, len(fx.Teams))
	for _, t := range fx.Teams {
		if t.ID <= 0 {
			return fx, fmt.Errorf("fixture team %q: id must be > 0", t.Name)
		}
		teams[t.ID] = true
	}
	seen := make(map[string]bool, len(fx.Users))
	for i, u := range fx.Users {
		key := strings.ToLower(strings.TrimSpace(u.EmployeeID))
		if key == "" {
			return fx, fmt.Errorf("fixture user #%d: employee_id is required", i+1)
		}
		if seen[key] {
			return fx, fmt.Errorf("fixture user %s: duplicate employee_id", u.EmployeeID)
		}
		seen[key] = true
		if u.TeamID != 0 && !teams[u.TeamID] {
			return fx, fmt.Errorf("fixture user %s: unknown team %d", u.EmployeeID, u.TeamID)
		}
		fx.Users[i].EmployeeID = strings.TrimSpace(u.EmployeeID)
		fx.Users[i].Role = domain.ParseRole(string(u.Role))
	}
	return fx, nil
}

// Apply upserts the fixture into store.
func (fx Fixture) Apply(ctx context.Context, store domain.Seedable) error {
	for _, t := range fx.Teams {
		if err := store.UpsertTeam(ctx, t.ID, t.Name); err != nil {
			return fmt.Errorf("seed team %d: %w", t.ID, err)
		}
	}
	for _, u := range fx.Users {
		if _, err := store.UpsertUser(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.EmployeeID, err)
		}
	}
	logger.SEED.Info("fixture applied",
		slog.String("event", "seed.fixture"),
		slog.Int("teams", len(fx.Teams)),
		slog.Int("users", len(fx.Users)),
	)
	return nil
}

// FromFile returns a seeder that applies the fixture at path. An empty path
// yields a no-op seeder.
func FromFile(path string) bootstrap.Seeder {
	return bootstrap.SeederFunc(func(ctx context.Context, storage bootstrap.Storage) error {
		if strings.TrimSpace(path) == "" {
			return nil
		}
		store, ok := storage.(domain.Seedable)
		if !ok {
			return fmt.Errorf("seed: storage %T does not accept fixtures", storage)
		}
		fx, err := Load(path)
		if err != nil {
			return err
		}
		return fx.Apply(ctx, store)
	})
}
