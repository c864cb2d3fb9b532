package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/sprintbot/core/telegram/helpers"
	"github.com/m3rciful/sprintbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

type fakeMessenger struct {
	mu      sync.Mutex
	sent    []string
	edits   []string
	editErr error
	opts    []interface{}
}

func (f *fakeMessenger) Send(_ tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, what.(string))
	f.opts = append(f.opts, opts...)
	return &tele.Message{ID: 100 + len(f.sent)}, nil
}

func (f *fakeMessenger) Edit(_ tele.Editable, what interface{}, _ ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.edits = append(f.edits, what.(string))
	return &tele.Message{}, nil
}

func (f *fakeMessenger) editCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.edits)
}

func TestTransportSendCountsMessages(t *testing.T) {
	bot := &fakeMessenger{}
	tr := NewTransport(bot, nil)
	counters := &helpers.Counters{}
	ctx := helpers.WithCounters(context.Background(), counters)

	id, err := tr.SendMessage(ctx, 7, "hello", keyboard.Reply([]string{"My Tasks"}))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != 101 {
		t.Fatalf("id = %d", id)
	}
	if err := tr.RemoveKeyboard(ctx, 7, "bye"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	msgs, kb := counters.Snapshot()
	if msgs != 2 || !kb {
		t.Fatalf("counters = %d %v", msgs, kb)
	}
	opts, ok := bot.opts[1].(*tele.SendOptions)
	if !ok || opts.ReplyMarkup == nil || !opts.ReplyMarkup.RemoveKeyboard {
		t.Fatalf("second send should remove keyboard, got %+v", bot.opts[1])
	}
}

func TestTransportEditIgnoresNotModified(t *testing.T) {
	bot := &fakeMessenger{editErr: errors.New("telegram: Bad Request: message is not modified (400)")}
	tr := NewTransport(bot, nil)
	if err := tr.EditMessage(context.Background(), 7, 5, "same", nil); err != nil {
		t.Fatalf("edit: %v", err)
	}
	bot.editErr = errors.New("telegram: Bad Request: message to edit not found (400)")
	if err := tr.EditMessage(context.Background(), 7, 5, "x", nil); err == nil {
		t.Fatal("expected edit error")
	}
	if err := tr.EditMessage(context.Background(), 7, 0, "x", nil); err == nil {
		t.Fatal("expected error for missing message id")
	}
}

func TestAnimateStopsEditing(t *testing.T) {
	bot := &fakeMessenger{}
	tr := NewTransport(bot, nil)
	stop := tr.Animate(context.Background(), 7, 5, []string{"⏳", "⌛"}, time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for bot.editCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	stop()
	after := bot.editCount()
	if after == 0 {
		t.Fatal("animation never edited the message")
	}
	time.Sleep(10 * time.Millisecond)
	if bot.editCount() != after {
		t.Fatalf("edits continued after stop: %d -> %d", after, bot.editCount())
	}
	stop()
}
