package netutil

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, "timeout"},
		{timeoutErr{}, "timeout"},
		{&net.OpError{Op: "dial", Err: errors.New("refused")}, "dial"},
		{&net.DNSError{Name: "api.telegram.org"}, "dns"},
		{tele.FloodError{RetryAfter: 3}, "flood"},
		{errors.New("Internal Server Error (502)"), "http_5xx"},
		{errors.New("telegram: Bad Request: chat not found (400)"), "http_4xx"},
		{errors.New("boom"), "unknown"},
	}
	for i, c := range cases {
		if got := Classify(c.err); got != c.want {
			t.Errorf("case %d: Classify = %q, want %q", i, got, c.want)
		}
	}
}

func TestRedact(t *testing.T) {
	got := Redact(errors.New("post https://api.telegram.org/bot123:ABC-def/sendMessage"))
	if got != "post https://api.telegram.org/bot<redacted>/sendMessage" {
		t.Fatalf("Redact = %q", got)
	}
}

func TestPolicyRetriesTransientErrors(t *testing.T) {
	calls := 0
	var waits []time.Duration
	n, err := Policy{Attempts: 3, Backoff: time.Millisecond}.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return timeoutErr{}
		}
		return nil
	}, func(_ int, d time.Duration) { waits = append(waits, d) })
	if err != nil || n != 3 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if len(waits) != 2 || waits[1] != 2*time.Millisecond {
		t.Fatalf("waits = %v", waits)
	}
}

func TestPolicyStopsOnPermanentError(t *testing.T) {
	n, err := Policy{Attempts: 5}.Do(context.Background(), func() error {
		return errors.New("Forbidden: bot was blocked by the user (403)")
	}, nil)
	if err == nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}

func TestPolicyHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := Policy{Attempts: 3}.Do(ctx, func() error { return nil }, nil)
	if !errors.Is(err, context.Canceled) || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}

func TestRetryAfterUsesFloodDelay(t *testing.T) {
	if got := RetryAfter(tele.FloodError{RetryAfter: 2}); got != 2*time.Second {
		t.Fatalf("RetryAfter = %v", got)
	}
	if RetryAfter(errors.New("x")) != 0 {
		t.Fatal("plain errors carry no delay")
	}
}
