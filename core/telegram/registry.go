package telegram

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/m3rciful/sprintbot/core/logger"
	"github.com/m3rciful/sprintbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Entry is a registered command under its canonical "/name" key.
type Entry struct {
	Name string
	commands.Command
}

// Registry keeps commands in registration order and resolves aliases.
type Registry struct {
	entries []Entry
	index   map[string]int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

func slashed(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "/") {
		return name
	}
	return "/" + name
}

func (r *Registry) rejectReason(name string, cmd commands.Command) string {
	switch {
	case name == "" || cmd.Description == "":
		return "invalid"
	case !strings.HasPrefix(name, "/"):
		return "no_slash_prefix"
	}
	if _, taken := r.index[name]; taken {
		return "duplicate"
	}
	return ""
}

// RegisterCommand adds cmd under name, which must start with a slash. Invalid
// and duplicate registrations are logged and ignored.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	if r == nil {
		return
	}
	if reason := r.rejectReason(name, cmd); reason != "" {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", reason),
		)
		return
	}
	r.entries = append(r.entries, Entry{Name: name, Command: cmd})
	pos := len(r.entries) - 1
	r.index[name] = pos
	for _, alias := range cmd.Aliases {
		if a := slashed(alias); a != "/" {
			if _, taken := r.index[a]; !taken {
				r.index[a] = pos
			}
		}
	}
}

// ListCommands returns the menu in alphabetical order. With visibleOnly set,
// hidden and admin-only commands are left out.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	list := make([]tele.Command, 0, len(r.entries))
	for _, e := range r.entries {
		if visibleOnly && !e.Listed() {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(e.Name, "/"), Description: e.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand resolves a name or alias, with or without the leading slash,
// to its canonical key.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	pos, ok := r.index[slashed(name)]
	if !ok {
		return "", commands.Command{}, false
	}
	e := r.entries[pos]
	return e.Name, e.Command, true
}

// Commands returns the registered commands in registration order.
func (r *Registry) Commands() []Entry {
	return r.entries
}

// CommandSetter is implemented by *tele.Bot.
type CommandSetter interface {
	SetCommands(opts ...interface{}) error
}

// InitBotCommands publishes the visible menu to Telegram.
func InitBotCommands(bot CommandSetter, reg *Registry) {
	if bot == nil || reg == nil {
		return
	}
	list := reg.ListCommands(true)
	level, event := slog.LevelInfo, "register.commands.set"
	attrs := []slog.Attr{slog.Int("commands", len(list))}
	if err := bot.SetCommands(list); err != nil {
		level, event = slog.LevelError, "register.commands.set_failed"
		attrs = append(attrs, slog.String("err", err.Error()))
	}
	logger.TWire.LogAttrs(context.Background(), level, event, attrs...)
}
