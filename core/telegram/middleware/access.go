package middleware

import (
	"log/slog"

	"github.com/m3rciful/sprintbot/core/logger"
	tghelpers "github.com/m3rciful/sprintbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions names the single operator account. With AdminID unset nobody
// passes the gate.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware lets only the operator reach next. Other senders get
// OnReject, or silence when it is nil.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	isAdmin := func(c tele.Context) bool {
		u := c.Sender()
		return opts.AdminID != 0 && u != nil && u.ID == opts.AdminID
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if isAdmin(c) {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), logger.CompTG, "admin.reject",
				slog.String("text", logger.SanitizeLimit(c.Text(), 32)),
			)
			if opts.OnReject == nil {
				return nil
			}
			return opts.OnReject(c)
		}
	}
}
