package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/sprintbot/core/logger"
	"github.com/m3rciful/sprintbot/core/telegram/helpers"
	"github.com/m3rciful/sprintbot/core/telegram/keyboard"
	"github.com/m3rciful/sprintbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Messenger is the subset of *tele.Bot used by Transport.
type Messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Transport sends and edits chat messages on behalf of the conversation layer.
// Messages are rendered with Markdown (v1) parse mode.
type Transport struct {
	bot       Messenger
	disp      *sender.Dispatcher
	parseMode tele.ParseMode
}

// NewTransport wraps bot. disp is used only for animation frames and may be nil.
func NewTransport(bot Messenger, disp *sender.Dispatcher) *Transport {
	return &Transport{bot: bot, disp: disp, parseMode: tele.ModeMarkdown}
}

// SendMessage sends text with an optional keyboard and returns the new message id.
func (t *Transport) SendMessage(ctx context.Context, chatID int64, text string, kb *keyboard.Layout) (int, error) {
	opts := &tele.SendOptions{ParseMode: t.parseMode, ReplyMarkup: kb.Markup()}
	msg, err := t.bot.Send(tele.ChatID(chatID), text, opts)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	helpers.CountersFrom(ctx).Add(opts.ReplyMarkup != nil)
	if msg == nil {
		return 0, nil
	}
	return msg.ID, nil
}

// EditMessage replaces the text and inline keyboard of an earlier message.
// An unchanged message is not treated as an error.
func (t *Transport) EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb *keyboard.Layout) error {
	if messageID <= 0 {
		return errors.New("edit message: no message id")
	}
	opts := &tele.SendOptions{ParseMode: t.parseMode, ReplyMarkup: kb.Markup()}
	if _, err := t.bot.Edit(storedMessage(chatID, messageID), text, opts); err != nil {
		if isNotModified(err) {
			return nil
		}
		return fmt.Errorf("edit message %d: %w", messageID, err)
	}
	helpers.CountersFrom(ctx).Add(opts.ReplyMarkup != nil)
	return nil
}

// RemoveKeyboard sends text and hides the reply keyboard.
func (t *Transport) RemoveKeyboard(ctx context.Context, chatID int64, text string) error {
	_, err := t.SendMessage(ctx, chatID, text, &keyboard.Layout{Remove: true})
	return err
}

// Animate cycles frames on an existing message every interval until stop is
// called. Frame edits go through the dispatcher; once stop returns no further
// frame is written.
func (t *Transport) Animate(ctx context.Context, chatID int64, messageID int, frames []string, every time.Duration) (stop func()) {
	if len(frames) == 0 || messageID <= 0 || every <= 0 {
		return func() {}
	}

	var (
		mu      sync.Mutex
		stopped bool
		once    sync.Once
		done    = make(chan struct{})
	)
	editFrame := func(frame string) func() error {
		return func() error {
			mu.Lock()
			defer mu.Unlock()
			if stopped {
				return nil
			}
			_, err := t.bot.Edit(storedMessage(chatID, messageID), frame)
			if isNotModified(err) {
				return nil
			}
			return err
		}
	}

	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for i := 1; ; i++ {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			run := editFrame(frames[i%len(frames)])
			if t.disp == nil {
				_ = run()
				continue
			}
			if err := t.disp.Enqueue(ctx, "edit.loading", "editMessageText", run); err != nil {
				logger.Debug(ctx, logger.CompSender, "animate.skip", slog.String("err", err.Error()))
			}
		}
	}()

	return func() {
		once.Do(func() {
			close(done)
			mu.Lock()
			stopped = true
			mu.Unlock()
		})
	}
}

func storedMessage(chatID int64, messageID int) tele.StoredMessage {
	return tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
}

func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}
