package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func render(t *testing.T, format logFormat, ctx context.Context, event string, attrs ...slog.Attr) string {
	t.Helper()
	buf := &bytes.Buffer{}
	out := newSink([]io.Writer{buf}, 1024)
	log := slog.New(newLineHandler(slog.LevelDebug, out, format, nil)).With("component", CompFlow)
	LogEvent(ctx, log, slog.LevelInfo, event, attrs...)
	if err := out.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func TestKVLeadingKeys(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(Background(), "rid-1"), 42, 7, 9)
	line := render(t, formatKV, ctx, "task.created",
		slog.Int64("task_id", 5),
		slog.String("status", "OK"),
	)
	tokens := strings.Fields(line)
	want := []string{"ts=", "level=INFO", "component=flow", "event=task.created", "status=ok", "rid=rid-1", "update_id=42", "user_id=7", "chat_id=9", "task_id=5"}
	if len(tokens) < len(want) {
		t.Fatalf("line = %s", line)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, want prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestJSONCompactRID(t *testing.T) {
	ctx := WithRID(Background(), BuildRID(12, 34, 56))
	line := render(t, formatJSON, ctx, "sprint.completed", slog.Int64("sprint_id", 3))

	for _, frag := range []string{`"rid":"c.y.1k"`, `"rid_full":"12:34:56"`, `"ts_unix_nano":`, `"sprint_id":3`} {
		if !strings.Contains(line, frag) {
			t.Fatalf("%s missing from %s", frag, line)
		}
	}
	if strings.Index(line, `"event"`) > strings.Index(line, `"rid"`) {
		t.Fatalf("event must precede rid: %s", line)
	}
}

func TestKVOmitsFullRID(t *testing.T) {
	line := render(t, formatKV, WithRID(Background(), "1:2:3"), "x")
	if !strings.Contains(line, "rid=1.2.3") || strings.Contains(line, "rid_full") {
		t.Fatalf("line = %s", line)
	}
}

func TestEnumerationsAndDurations(t *testing.T) {
	line := render(t, formatKV, Background(), "db.connect",
		slog.String("outcome", "maybe"),
		slog.Duration("duration", 1500*time.Microsecond),
		slog.Duration("backoff", 2*time.Second),
		slog.String("empty", " "),
	)
	if strings.Contains(line, "outcome=") || strings.Contains(line, "empty=") {
		t.Fatalf("unknown outcome and blank values must be dropped: %s", line)
	}
	if !strings.Contains(line, "duration_ms=2") || !strings.Contains(line, "backoff_ms=2000") {
		t.Fatalf("durations not normalised: %s", line)
	}
}

func TestGroupsAreDotted(t *testing.T) {
	line := render(t, formatKV, Background(), "x", slog.Group("task", slog.String("title", "fix login")))
	if !strings.Contains(line, `task.title="fix login"`) {
		t.Fatalf("line = %s", line)
	}
}

func TestSampler(t *testing.T) {
	var s sampler
	s.Set(2, 5)
	allowed := 0
	for range 10 {
		if s.Allow() {
			allowed++
		}
	}
	if allowed != 4 {
		t.Fatalf("allowed %d of 10, want 4", allowed)
	}
	s.Set(0, 0)
	if !s.Allow() {
		t.Fatal("zero ratio must allow everything")
	}
}

func TestDebugRatio(t *testing.T) {
	cases := []struct {
		in   string
		n, d int
	}{
		{"2/5", 2, 5},
		{"20", 1, 20},
		{"0", 0, 0},
		{"", 1, 50},
		{"junk", 1, 50},
		{"-3", 1, 50},
		{"0/4", 1, 50},
	}
	for _, c := range cases {
		if n, d := debugRatio(c.in); n != c.n || d != c.d {
			t.Errorf("debugRatio(%q) = %d/%d, want %d/%d", c.in, n, d, c.n, c.d)
		}
	}
}

func TestSanitizeLimit(t *testing.T) {
	in := "task\x00 title​ that is long"
	if got := SanitizeLimit(in, 10); got != "task title" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if SanitizeLimit(in, 0) != "" {
		t.Fatal("expected empty output for zero limit")
	}
}

func TestSummarizeStrings(t *testing.T) {
	got, cut := SummarizeStrings([]string{"a", "b", "c"}, 2)
	if got != "a, b" || !cut {
		t.Fatalf("got %q %v", got, cut)
	}
}
