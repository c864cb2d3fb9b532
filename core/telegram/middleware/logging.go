package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/sprintbot/core/logger"
	"github.com/m3rciful/sprintbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/sprintbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// updateSet remembers update ids for a short window so an update routed
// through several handler branches is logged once.
type updateSet struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[int]time.Time
}

var received = &updateSet{ttl: 10 * time.Second, seen: map[int]time.Time{}}

// first reports whether id is new, recording it if so.
func (s *updateSet) first(id int, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, at := range s.seen {
		if now.Sub(at) > s.ttl {
			delete(s.seen, k)
		}
	}
	if _, dup := s.seen[id]; dup {
		return false
	}
	s.seen[id] = now
	return true
}

// LoggerMiddleware derives the request context for every update: it builds
// the correlation id, attaches update identifiers and the message counters,
// and stores the result on the telebot context. A sampled debug line records
// the receipt.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		ctx := tghelpers.BuildContext(c)
		if counters, ok := c.Get(countersKey).(*tghelpers.Counters); ok {
			ctx = tghelpers.WithCounters(ctx, counters)
			tghelpers.StoreContext(c, ctx)
		}

		if logger.ShouldSampleDebug() && received.first(upd.ID, time.Now()) {
			logger.LogEvent(ctx, nil, slog.LevelDebug, "update.received", receiptAttrs(c)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if u := c.Sender(); u != nil && u.Username != "" {
		attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
	}
	payload := c.Text()
	if c.Callback() != nil {
		payload = callbacks.Data(c)
	}
	if payload != "" {
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
	}
	return attrs
}
