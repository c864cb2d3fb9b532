// Package bootstrap brings up logging and storage before the bot starts.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/sprintbot/core/config"
	coredatabase "github.com/m3rciful/sprintbot/core/database"
	"github.com/m3rciful/sprintbot/core/logger"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Options select the storage driver. The function fields default to the real
// logger, connection and migration runner; tests replace them.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config
	// Driver is "postgres" (the default) or "memory".
	Driver string

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

func (o *Options) withDefaults() {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.Connect == nil {
		o.Connect = coredatabase.Connect
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.RunMigrations
	}
}

// Result reports the chosen driver. DB is nil for the memory driver.
type Result struct {
	Driver string
	DB     *sqlx.DB
}

func driverName(s string) (string, error) {
	switch d := strings.ToLower(strings.TrimSpace(s)); d {
	case "", DriverPostgres:
		return DriverPostgres, nil
	case DriverMemory:
		return DriverMemory, nil
	default:
		return "", fmt.Errorf("bootstrap: unknown storage driver %q", s)
	}
}

// Run starts the logger and prepares storage. For postgres it connects and
// migrates the schema; the connection is closed again if migration fails.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config")
	}
	opts.withDefaults()
	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger: %w", err)
	}
	driver, err := driverName(opts.Driver)
	if err != nil {
		return nil, err
	}

	res := &Result{Driver: driver}
	if driver == DriverPostgres {
		if res.DB, err = opts.Connect(opts.Database); err != nil {
			return nil, fmt.Errorf("bootstrap: connect: %w", err)
		}
		if err := opts.Migrate(opts.Database); err != nil {
			_ = res.DB.Close()
			return nil, fmt.Errorf("bootstrap: migrate: %w", err)
		}
	}
	logger.DB.Info("storage.ready", slog.String("event", "storage.ready"), slog.String("driver", driver))
	return res, nil
}
