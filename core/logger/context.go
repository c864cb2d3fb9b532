package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

type ctxKey int

const (
	keyRID ctxKey = iota
	keyUpdate
	keyUser
	keyChat
	keyLogger
	keyHandler
)

func with(ctx context.Context, k ctxKey, v any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, k, v)
}

func value[T any](ctx context.Context, k ctxKey) T {
	var zero T
	if ctx == nil {
		return zero
	}
	v, _ := ctx.Value(k).(T)
	return v
}

// WithLogger stores log in ctx. A nil logger leaves ctx untouched.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if log == nil {
		return with(ctx, keyLogger, FromContext(ctx))
	}
	return with(ctx, keyLogger, log)
}

// FromContext returns the logger carried by ctx, or the base logger.
func FromContext(ctx context.Context) *slog.Logger {
	if l := value[*slog.Logger](ctx, keyLogger); l != nil {
		return l
	}
	return L
}

// WithRID attaches the correlation id of the current update.
func WithRID(ctx context.Context, rid string) context.Context { return with(ctx, keyRID, rid) }

// RIDFrom returns the correlation id attached by WithRID.
func RIDFrom(ctx context.Context) string { return value[string](ctx, keyRID) }

// WithUpdateMeta attaches the update, sender and chat identifiers.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	ctx = with(ctx, keyUpdate, updateID)
	ctx = with(ctx, keyUser, userID)
	return with(ctx, keyChat, chatID)
}

// WithHandler names the handler serving the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		return with(ctx, keyHandler, HandlerFrom(ctx))
	}
	return with(ctx, keyHandler, handler)
}

// HandlerFrom returns the handler name attached by WithHandler.
func HandlerFrom(ctx context.Context) string { return value[string](ctx, keyHandler) }

// UserIDFrom returns the Telegram sender id.
func UserIDFrom(ctx context.Context) int64 { return value[int64](ctx, keyUser) }

// ChatIDFrom returns the chat id.
func ChatIDFrom(ctx context.Context) int64 { return value[int64](ctx, keyChat) }

// UpdateIDFrom returns the update id.
func UpdateIDFrom(ctx context.Context) int { return value[int](ctx, keyUpdate) }

// contextFields copies request identifiers from ctx into fields without
// overriding attributes set explicitly on the record.
func contextFields(ctx context.Context, fields map[string]any) {
	set := func(k string, v any, empty bool) {
		if empty {
			return
		}
		if _, ok := fields[k]; !ok {
			fields[k] = v
		}
	}
	rid := RIDFrom(ctx)
	set("rid", rid, rid == "")
	uid := UserIDFrom(ctx)
	set("user_id", uid, uid == 0)
	upd := UpdateIDFrom(ctx)
	set("update_id", upd, upd == 0)
	cid := ChatIDFrom(ctx)
	set("chat_id", cid, cid == 0)
	h := HandlerFrom(ctx)
	set("handler", h, h == "")
}

// BuildRID formats a correlation id as updateID:chatID:userID.
func BuildRID(updateID int, chatID, userID int64) string {
	return fmt.Sprintf("%d:%d:%d", updateID, chatID, userID)
}

// CompactRID rewrites each numeric segment of a BuildRID value in base36,
// joined by dots. Other values are returned unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	parts := strings.Split(rid, ":")
	if len(parts) != 3 {
		return rid
	}
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return rid
		}
		parts[i] = strconv.FormatInt(n, 36)
	}
	return strings.Join(parts, ".")
}
