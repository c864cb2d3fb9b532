package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/sprintbot/core/logger"
	"github.com/m3rciful/sprintbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var outbox atomic.Pointer[sender.Dispatcher]

// SetDispatcher installs the queue used by SendText. Pass nil to send inline.
func SetDispatcher(d *sender.Dispatcher) {
	outbox.Store(d)
}

// SendText queues a plain-text reply to the chat in c. When no queue is
// installed, or it is full or closed, the reply is sent inline.
func SendText(c tele.Context, text string) error {
	send := func() error { return c.Send(text) }
	d := outbox.Load()
	if d == nil {
		return send()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, "send.text", "sendMessage", send)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, logger.CompSender, "queue.fallback", slog.String("err", err.Error()))
		return send()
	}
	return err
}
