package router

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/sprintbot/core/logger"
	tghelpers "github.com/m3rciful/sprintbot/core/telegram/helpers"
	"github.com/m3rciful/sprintbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// summary times one handler invocation and writes a single handler.handled
// line with the replies it produced.
type summary struct {
	c     tele.Context
	name  string
	start time.Time
	attrs []slog.Attr
}

func begin(c tele.Context, name string, attrs ...slog.Attr) *summary {
	return &summary{c: c, name: name, start: time.Now(), attrs: attrs}
}

// run calls fn with the request context and logs its outcome.
func (s *summary) run(fn func(ctx context.Context) error) error {
	err := fn(tghelpers.WithHandler(s.c, s.name))
	status := "ok"
	if err != nil {
		status = "fail"
	}
	s.write(status, err)
	return err
}

// skip logs that the update was deliberately ignored.
func (s *summary) skip(reason string) {
	s.attrs = append(s.attrs, slog.String("reason", reason))
	s.write("skip", nil)
}

func (s *summary) write(status string, err error) {
	ctx := tghelpers.WithHandler(s.c, s.name)
	msgs, kb := middleware.GetCounters(s.c)
	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}
	attrs := append([]slog.Attr{
		slog.String("status", status),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.RoundMS(time.Since(s.start))),
	}, s.attrs...)
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.LogEvent(ctx, nil, slog.LevelInfo, "handler.handled", attrs...)
}

// handlerName turns a namespace or command into a log-friendly identifier.
func handlerName(name string) string {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
	if name == "" {
		return "unknown"
	}
	return strings.ReplaceAll(name, " ", "_")
}

// errorCode names err for grouping in logs: an explicit Code() when the error
// has one, otherwise the innermost wrapped type.
func errorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
