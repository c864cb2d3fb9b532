package callbacks

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ErrMalformed is returned for payloads that do not follow <namespace>_<action>[_<param>]*.
var ErrMalformed = errors.New("callbacks: malformed payload")

// Payload is a parsed inline button token.
type Payload struct {
	Namespace string
	Action    string
	Params    []string
	Raw       string
}

// Parse splits raw on underscores into namespace, action and params.
func Parse(raw string) (Payload, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, "_")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Payload{Raw: raw}, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	return Payload{
		Namespace: parts[0],
		Action:    parts[1],
		Params:    parts[2:],
		Raw:       raw,
	}, nil
}

// Param returns the i-th parameter or an empty string.
func (p Payload) Param(i int) string {
	if i < 0 || i >= len(p.Params) {
		return ""
	}
	return p.Params[i]
}

// Int64 parses the i-th parameter as int64.
func (p Payload) Int64(i int) (int64, error) {
	if i < 0 || i >= len(p.Params) {
		return 0, fmt.Errorf("%w: missing param %d in %q", ErrMalformed, i, p.Raw)
	}
	return strconv.ParseInt(p.Params[i], 10, 64)
}

// Build joins namespace, action and params into a payload string.
func Build(namespace, action string, params ...any) string {
	var b strings.Builder
	b.WriteString(namespace)
	b.WriteByte('_')
	b.WriteString(action)
	for _, p := range params {
		b.WriteByte('_')
		fmt.Fprint(&b, p)
	}
	return b.String()
}

// Data returns the callback data of c, unwrapping Telebot's \f<unique>|<data>
// encoding when a button was built with a unique key.
func Data(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		if cb.Data == "" {
			return cb.Unique
		}
		return cb.Unique + "_" + cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	if unique, data, ok := strings.Cut(raw, "|"); ok && raw != cb.Data {
		return unique + "_" + data
	}
	return raw
}
