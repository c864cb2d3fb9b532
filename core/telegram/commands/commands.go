// Package commands describes slash commands offered by the bot.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command is one slash command. Commands without a Handler are menu entries
// whose text is handled by the conversation layer.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}

// Listed reports whether the command appears in the public command menu.
func (c Command) Listed() bool { return !c.Hidden && !c.AdminOnly }

// Routed reports whether the command needs its own endpoint.
func (c Command) Routed() bool { return c.Handler != nil }
