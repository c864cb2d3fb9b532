package middleware

import (
	tghelpers "github.com/m3rciful/sprintbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "counters"

// MessageMetricsMiddleware attaches per-update counters. The transport
// increments them for every message it sends or edits while the update is
// handled, and the handler summary reports them.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		counters := &tghelpers.Counters{}
		c.Set(countersKey, counters)
		if ctx, ok := tghelpers.ContextFrom(c); ok {
			tghelpers.StoreContext(c, tghelpers.WithCounters(ctx, counters))
		}
		return next(c)
	}
}

// GetCounters reads message count and keyboard presence flags for the update.
func GetCounters(c tele.Context) (int, bool) {
	counters, _ := c.Get(countersKey).(*tghelpers.Counters)
	return counters.Snapshot()
}
