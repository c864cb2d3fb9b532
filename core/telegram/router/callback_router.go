package router

import (
	"context"
	"log/slog"

	tg "github.com/m3rciful/sprintbot/core/telegram"
	"github.com/m3rciful/sprintbot/core/telegram/callbacks"
	"github.com/m3rciful/sprintbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute acknowledges every inline button press and forwards its
// payload, with the id of the message carrying the button, to conv.
func CallbackRoute(conv Conversation) tg.Route {
	handler := func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		data := callbacks.Data(c)
		name := "callback.unknown"
		if p, err := callbacks.Parse(data); err == nil {
			name = "callback." + handlerName(p.Namespace)
		}
		s := begin(c, name, slog.String("payload", data))
		_ = c.Respond()

		chat := c.Chat()
		if conv == nil || chat == nil {
			s.skip("no_chat")
			return nil
		}
		var messageID int
		if cb.Message != nil {
			messageID = cb.Message.ID
		}
		return s.run(func(ctx context.Context) error {
			return conv.HandleButton(ctx, chat.ID, data, messageID)
		})
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
