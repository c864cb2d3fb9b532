// Package app wires configuration, storage, sessions and the conversation
// dispatcher into a runnable Telegram bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m3rciful/sprintbot/core/bootstrap"
	"github.com/m3rciful/sprintbot/core/cmd"
	"github.com/m3rciful/sprintbot/core/logger"
	coretelegram "github.com/m3rciful/sprintbot/core/telegram"
	tghelpers "github.com/m3rciful/sprintbot/core/telegram/helpers"
	"github.com/m3rciful/sprintbot/core/telegram/router"
	"github.com/m3rciful/sprintbot/internal/config"
	"github.com/m3rciful/sprintbot/internal/domain"
	"github.com/m3rciful/sprintbot/internal/flow"
	"github.com/m3rciful/sprintbot/internal/seed"
	"github.com/m3rciful/sprintbot/internal/session"
	"github.com/m3rciful/sprintbot/internal/storage/memory"
	"github.com/m3rciful/sprintbot/internal/storage/postgres"

	tele "gopkg.in/telebot.v4"
)

const (
	msgTextOnly = "Please send text messages only."
	msgSlowDown = "⏳ Too fast, please wait a moment."
)

// App owns the long-lived components of a running bot.
type App struct {
	cfg      *config.Config
	driver   string
	store    domain.Facade
	closer   func() error
	sessions *session.Store

	mu        sync.Mutex
	sender    senderStats
	stopSweep context.CancelFunc
}

// senderStats is the part of the outbound queue reported by /stats.
type senderStats interface {
	Pending() int
	ErrorCount() uint64
}

// LoadConfig adapts config.Load to the runner.
func LoadConfig(path string) (cmd.ConfigCarrier, error) {
	return config.Load(path)
}

// Bootstrap adapts New to the runner.
func Bootstrap(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	return New(cfg)
}

// New initialises logging and storage and applies the seed fixture.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
		Driver:   cfg.Storage.Driver,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		driver:   res.Driver,
		sessions: session.NewStore(),
	}
	switch res.Driver {
	case bootstrap.DriverMemory:
		a.store = memory.New()
	default:
		pg := postgres.New(res.DB)
		a.store = pg
		a.closer = pg.Close
	}

	if err := bootstrap.RunSeeders(context.Background(), a.store, seed.FromFile(cfg.Storage.SeedFile)); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the database connection, if any.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer()
}

// TelegramRunOptions assembles middlewares, routes and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	core := a.cfg.CoreConfig()
	reg := a.registry()

	return coretelegram.RunOptions{
		Config:      core,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(core, slowDown),
		Routes: router.CommandRoutes(reg, router.CommandRouteOptions{
			AdminID: core.Telegram.AdminID,
		}),
		RouteBuilder: a.conversationRoutes,
		OnStart:      a.onStart,
		OnStop:       a.onStop,
	}, nil
}

// slowDown answers throttled updates; a button press gets a toast so the
// client stops its spinner.
func slowDown(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: msgSlowDown})
	}
	return tghelpers.SendText(c, msgSlowDown)
}

func (a *App) conversationRoutes(rt coretelegram.Runtime) []coretelegram.Route {
	d := flow.New(a.sessions, a.store, rt.Transport, flow.WithLocation(a.cfg.Location()))

	routes := router.TextRoutes(d, router.TextOptions{
		UnknownMedia: func(c tele.Context) error {
			return tghelpers.SendText(c, msgTextOnly)
		},
	})
	return append(routes, router.CallbackRoute(d))
}

func (a *App) onStart(ctx context.Context, rt coretelegram.Runtime) error {
	sweepCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.stopSweep = cancel
	if rt.Dispatcher != nil {
		a.sender = rt.Dispatcher
	}
	a.mu.Unlock()

	go a.sessions.Run(sweepCtx, a.cfg.Session.SweepInterval, a.cfg.Session.IdleTTL)
	logger.Info(ctx, logger.CompApp, "sessions.sweeper",
		slog.Duration("idle_ttl", a.cfg.Session.IdleTTL),
		slog.Duration("every", a.cfg.Session.SweepInterval),
		slog.String("storage", a.driver),
	)
	return nil
}

func (a *App) onStop(context.Context, coretelegram.Runtime) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopSweep != nil {
		a.stopSweep()
		a.stopSweep = nil
	}
	return nil
}
