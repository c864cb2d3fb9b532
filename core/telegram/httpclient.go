package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/sprintbot/core/telegram/netutil"
)

// apiClient holds the HTTP timeouts used against api.telegram.org. Long
// polling keeps a request open for the poll timeout, so the overall client
// timeout must stay above it.
var apiClient = struct {
	dial, tls, idle, total time.Duration
	retry                  netutil.Policy
}{
	dial:  5 * time.Second,
	tls:   5 * time.Second,
	idle:  30 * time.Second,
	total: 30 * time.Second,
	retry: netutil.Policy{Attempts: 4, Backoff: 2 * time.Second},
}

// BuildHTTPClient returns the client handed to telebot.
func BuildHTTPClient() *http.Client {
	base := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: apiClient.dial, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     apiClient.idle,
		TLSHandshakeTimeout: apiClient.tls,
	}
	return &http.Client{
		Timeout:   apiClient.total,
		Transport: &retryTransport{base: base, policy: apiClient.retry},
	}
}

// retryTransport repeats requests that failed before a response arrived.
// Requests whose body cannot be replayed are tried once.
type retryTransport struct {
	base   http.RoundTripper
	policy netutil.Policy
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	policy := t.policy
	if req.Body != nil && req.GetBody == nil {
		policy.Attempts = 1
	}
	var resp *http.Response
	first := true
	_, err := policy.Do(req.Context(), func() error {
		r := req
		if !first {
			r = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return err
				}
				r.Body = body
			}
		}
		first = false
		var err error
		resp, err = t.base.RoundTrip(r)
		return err
	}, nil)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
