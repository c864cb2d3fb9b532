package router

import (
	"log/slog"
	"strings"

	"github.com/m3rciful/sprintbot/core/logger"
	tg "github.com/m3rciful/sprintbot/core/telegram"
	"github.com/m3rciful/sprintbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures admin gating for command routes.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes returns an endpoint for each registry command with its own
// handler. Menu-only commands reach the text route instead. Aliases get an
// endpoint of their own.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	gate := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	var routes []tg.Route
	for _, e := range reg.Commands() {
		if !e.Routed() {
			continue
		}
		h := middleware.LoggerMiddleware(middleware.RecoverMiddleware(e.Handler))
		if e.AdminOnly {
			h = gate(h)
		}
		routes = append(routes, tg.Route{Endpoint: e.Name, Handler: h})
		for _, alias := range e.Aliases {
			if name, _, ok := reg.LookupCommand(alias); ok && name == e.Name {
				routes = append(routes, tg.Route{Endpoint: "/" + strings.TrimLeft(alias, "/"), Handler: h})
			}
		}
	}

	logger.TWire.Info("routes.commands",
		slog.Int("commands", len(reg.Commands())),
		slog.Int("routed", len(routes)),
	)
	return routes
}
