package router

import (
	"context"

	tg "github.com/m3rciful/sprintbot/core/telegram"
	"github.com/m3rciful/sprintbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// TextOptions controls the reply to non-text messages.
type TextOptions struct {
	UnknownMedia tele.HandlerFunc
}

// TextRoutes forwards every text message, including slash commands without a
// dedicated route, to conv. Photos and documents go to
// opts.UnknownMedia.
func TextRoutes(conv Conversation, opts TextOptions) []tg.Route {
	text := func(c tele.Context) error {
		s := begin(c, "text")
		chat := c.Chat()
		if conv == nil || chat == nil {
			s.skip("no_chat")
			return nil
		}
		return s.run(func(ctx context.Context) error {
			return conv.HandleText(ctx, chat.ID, c.Text())
		})
	}
	media := func(c tele.Context) error {
		s := begin(c, "unexpected_media")
		if opts.UnknownMedia == nil {
			s.skip("no_reply")
			return nil
		}
		return s.run(func(context.Context) error { return opts.UnknownMedia(c) })
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	routes := []tg.Route{{Endpoint: tele.OnText, Handler: wrap(text)}}
	for _, ep := range []string{tele.OnDocument, tele.OnPhoto} {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: wrap(media)})
	}
	return routes
}
