package helpers

import (
	"testing"
	"time"
)

func TestParseFlexibleDate(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	want := time.Date(2026, 11, 3, 0, 0, 0, 0, loc)
	for _, in := range []string{"2026-11-03", "2026-11-3", "03.11.2026", "3.11.2026", " 2026/11/03 ", "03/11/2026"} {
		got, ok := ParseFlexibleDate(in, loc)
		if !ok || !got.Equal(want) {
			t.Errorf("ParseFlexibleDate(%q) = %v, %v", in, got, ok)
		}
	}
	for _, in := range []string{"", "tomorrow", "2026-13-01", "31.02.2026", "2026-11-03 10:00"} {
		if _, ok := ParseFlexibleDate(in, loc); ok {
			t.Errorf("ParseFlexibleDate(%q) should fail", in)
		}
	}
}
