package logger

import "strings"

// keyOrder lists the fields that lead every line, in this order. Anything not
// listed follows alphabetically.
var keyOrder = []string{
	"ts", "level", "component", "event", "status", "rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type", "handler",
	"workflow", "stage", "op", "cb_key", "outcome", "duration_ms",
	"messages", "kb", "count", "payload",
	"role", "employee_id", "task_id", "sprint_id", "team_id", "sessions", "evicted",
	"username", "mode", "listen", "public_url",
	"db", "host", "port",
	"err", "err_code", "cause", "attempts", "backoff_ms", "rate_limited",
}

// vocab is a closed set of values accepted for an enumerated field.
type vocab map[string]string

var levelNames = vocab{
	"debug": "DEBUG", "info": "INFO",
	"warn": "WARN", "warning": "WARN",
	"error": "ERROR", "fatal": "FATAL",
}

var statusNames = vocab{
	"ok": "ok", "fail": "fail", "skip": "skip", "retry": "retry",
	"rate_limited": "rate_limited", "cancelled": "cancelled",
	"canceled": "cancelled",
}

var outcomeNames = vocab{
	"ok": "ok", "fail": "fail",
	"cancelled": "cancelled", "canceled": "cancelled",
	"rate_limited": "rate_limited",
}

func (v vocab) lookup(s string) (string, bool) {
	got, ok := v[strings.ToLower(strings.TrimSpace(s))]
	return got, ok
}

func levelName(s string) string {
	if s == "" {
		return "INFO"
	}
	if got, ok := levelNames.lookup(s); ok {
		return got
	}
	return strings.ToUpper(s)
}

// enumerate folds well-known enumerations to their canonical spelling.
// Unknown statuses are kept as written; unknown outcomes are dropped.
func enumerate(fields map[string]any) {
	if s, ok := fields["level"].(string); ok {
		fields["level"] = levelName(s)
	}
	if s, ok := fields["status"].(string); ok {
		if got, known := statusNames.lookup(s); known {
			fields["status"] = got
		}
	}
	if s, ok := fields["outcome"].(string); ok {
		if got, known := outcomeNames.lookup(s); known {
			fields["outcome"] = got
		} else {
			delete(fields, "outcome")
		}
	}
}
