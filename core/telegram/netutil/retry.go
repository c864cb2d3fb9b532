// Package netutil classifies Telegram API failures and retries the
// transient ones.
package netutil

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// ShouldRetry reports whether err is a transient network failure or a
// Telegram flood-control reply.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled)
}

// RetryAfter returns the wait Telegram asked for in a flood-control reply.
func RetryAfter(err error) time.Duration {
	var flood tele.FloodError
	if errors.As(err, &flood) && flood.RetryAfter > 0 {
		return time.Duration(flood.RetryAfter) * time.Second
	}
	return 0
}

// Policy bounds a retry loop. Attempt n waits Backoff*n, or the flood-control
// delay when Telegram sent one.
type Policy struct {
	Attempts int
	Backoff  time.Duration
}

// Do calls fn until it succeeds, fails permanently, the attempts run out or
// ctx is done. onRetry, if set, is told about each wait before it starts.
// It returns the number of calls made and the last error.
func (p Policy) Do(ctx context.Context, fn func() error, onRetry func(attempt int, delay time.Duration)) (int, error) {
	attempts := max(p.Attempts, 1)
	var err error
	for n := 1; ; n++ {
		if cerr := ctx.Err(); cerr != nil {
			return n - 1, cerr
		}
		if err = fn(); err == nil || !ShouldRetry(err) || n == attempts {
			return n, err
		}
		delay := p.Backoff * time.Duration(n)
		if ra := RetryAfter(err); ra > 0 {
			delay = ra
		}
		if onRetry != nil {
			onRetry(n, delay)
		}
		if delay <= 0 {
			continue
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return n, ctx.Err()
		case <-t.C:
		}
	}
}

// Classify names the failure class of err for logs: timeout, dns, dial, tls,
// flood, http_4xx, http_5xx or unknown.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	var (
		dnsErr *net.DNSError
		netErr net.Error
		opErr  *net.OpError
		alert  tls.AlertError
		flood  tele.FloodError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return "dial"
	case errors.As(err, &alert):
		return "tls"
	case errors.As(err, &flood):
		return "flood"
	}
	switch code := StatusCode(err); {
	case code >= 500:
		return "http_5xx"
	case code >= 400:
		return "http_4xx"
	}
	return "unknown"
}

// StatusCode extracts the HTTP status of a Telegram API error, falling back
// to a trailing "(NNN)" in the message.
func StatusCode(err error) int {
	var (
		apiErr *tele.Error
		flood  tele.FloodError
		group  tele.GroupError
		urlErr *url.Error
	)
	switch {
	case err == nil:
		return 0
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.As(err, &flood):
		return http.StatusTooManyRequests
	case errors.As(err, &group):
		return http.StatusBadRequest
	case errors.As(err, &urlErr):
		return 0
	}
	msg := strings.TrimSpace(err.Error())
	open := strings.LastIndexByte(msg, '(')
	if open < 0 || !strings.HasSuffix(msg, ")") {
		return 0
	}
	code, convErr := strconv.Atoi(msg[open+1 : len(msg)-1])
	if convErr != nil {
		return 0
	}
	return code
}

// Redact hides bot tokens that net/http embeds in request URLs.
func Redact(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
