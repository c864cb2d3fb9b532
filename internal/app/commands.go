package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/sprintbot/core/logger"
	coretelegram "github.com/m3rciful/sprintbot/core/telegram"
	"github.com/m3rciful/sprintbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/sprintbot/core/telegram/helpers"
	"github.com/m3rciful/sprintbot/internal/domain"

	tele "gopkg.in/telebot.v4"
)

// registry lists the command menu. Entries without a handler are answered by
// the conversation layer through the text route.
func (a *App) registry() *coretelegram.Registry {
	reg := coretelegram.NewRegistry()
	menu := []struct{ name, desc string }{
		{"/start", "Sign in or show the main menu"},
		{"/tasks", "Your open tasks"},
		{"/newtask", "Create a task"},
		{"/complete", "Complete a task"},
		{"/sprint", "Sprint board"},
		{"/assign", "Move a task into a sprint"},
		{"/newsprint", "Plan a sprint (managers)"},
		{"/endsprint", "End the active sprint (managers)"},
		{"/cancel", "Stop the current action"},
		{"/help", "How to use the bot"},
		{"/logout", "Sign out"},
	}
	for _, m := range menu {
		reg.RegisterCommand(m.name, commands.Command{Description: m.desc})
	}
	reg.RegisterCommand("/menu", commands.Command{Description: "Show the main menu", Hidden: true})
	reg.RegisterCommand("/stats", commands.Command{
		Description: "Bot statistics",
		AdminOnly:   true,
		Handler:     a.handleStats,
	})
	return reg
}

// Stats is a point-in-time view of the running bot.
type Stats struct {
	Sessions      int
	Pending       int
	SendErrors    uint64
	Sprints       int
	ActiveSprint  string
	StorageDriver string
}

// Stats collects session, queue and sprint counters.
func (a *App) Stats(ctx context.Context, now time.Time) (Stats, error) {
	st := Stats{Sessions: a.sessions.Len(), StorageDriver: a.driver}
	a.mu.Lock()
	if a.sender != nil {
		st.Pending = a.sender.Pending()
		st.SendErrors = a.sender.ErrorCount()
	}
	a.mu.Unlock()

	sprints, err := a.store.AllSprints(ctx)
	if err != nil {
		return st, fmt.Errorf("stats: %w", err)
	}
	st.Sprints = len(sprints)
	if sp, ok := domain.ActiveSprint(sprints, now); ok {
		st.ActiveSprint = sp.Name
	}
	return st, nil
}

func (s Stats) String() string {
	active := s.ActiveSprint
	if active == "" {
		active = "none"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "sessions: %d\n", s.Sessions)
	fmt.Fprintf(&b, "send queue: %d pending, %d failed\n", s.Pending, s.SendErrors)
	fmt.Fprintf(&b, "sprints: %d (active: %s)\n", s.Sprints, active)
	fmt.Fprintf(&b, "storage: %s", s.StorageDriver)
	return b.String()
}

func (a *App) handleStats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	st, err := a.Stats(ctx, time.Now())
	if err != nil {
		logger.Error(ctx, logger.CompApp, "stats.fail", slog.String("err", err.Error()))
		return tghelpers.SendText(c, "stats unavailable")
	}
	return tghelpers.SendText(c, st.String())
}
