package helpers

import (
	"context"
	"sync"

	"github.com/m3rciful/sprintbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// stashCtx keys the update context in the tele.Context store.
const stashCtx = "sprintbot.ctx"

// Counters tallies the replies produced while one update is handled.
type Counters struct {
	mu       sync.Mutex
	messages int
	keyboard bool
}

// Add records one outbound message.
func (c *Counters) Add(hasKeyboard bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.messages++
	c.keyboard = c.keyboard || hasKeyboard
	c.mu.Unlock()
}

// Snapshot returns the message count and whether any reply had a keyboard.
func (c *Counters) Snapshot() (int, bool) {
	if c == nil {
		return 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages, c.keyboard
}

type countersKey struct{}

// WithCounters attaches c to ctx.
func WithCounters(ctx context.Context, c *Counters) context.Context {
	return context.WithValue(ctx, countersKey{}, c)
}

// CountersFrom returns the counters on ctx, or nil. A nil *Counters is safe
// to use.
func CountersFrom(ctx context.Context) *Counters {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(countersKey{}).(*Counters)
	return c
}

// StoreContext keeps ctx on c for later handlers of the same update.
func StoreContext(c tele.Context, ctx context.Context) {
	if c != nil && ctx != nil {
		c.Set(stashCtx, ctx)
	}
}

// ContextFrom returns the context kept by StoreContext.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(stashCtx).(context.Context)
	return ctx, ok && ctx != nil
}

// BuildContext returns the logging context for the update in c, creating and
// caching it on first use.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := ContextFrom(c); ok {
		return ctx
	}
	updateID := c.Update().ID
	var chatID, userID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	ctx := logger.WithLogger(context.Background(), logger.Component(logger.CompTG))
	ctx = logger.WithRID(ctx, logger.BuildRID(updateID, chatID, userID))
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	StoreContext(c, ctx)
	return ctx
}

// WithHandler tags the update context with the handler name.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler != "" {
		ctx = logger.WithHandler(ctx, handler)
		StoreContext(c, ctx)
	}
	return ctx
}
