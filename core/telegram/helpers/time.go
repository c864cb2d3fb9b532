package helpers

import (
	"strings"
	"time"
)

// dateLayouts are the day formats people type in chat, ISO first.
var dateLayouts = []string{
	"2006-01-02", "2006-1-2", "2006/01/02", "2006/1/2",
	"02.01.2006", "2.1.2006", "02/01/2006", "2/1/2006",
}

// ParseFlexibleDate reads a calendar day typed by a user and returns its
// midnight in loc (time.Local when nil).
func ParseFlexibleDate(input string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	s := strings.TrimSpace(input)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
