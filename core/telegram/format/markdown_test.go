package format

import "testing"

func TestMD(t *testing.T) {
	tests := map[string]string{
		"fix_bug *now*":   `fix\_bug \*now\*`,
		"[link](x)":       `\[link](x)`,
		"run `make`":      "run \\`make\\`",
		"Sprint 12 (v2).": "Sprint 12 (v2).",
		"":                "",
	}
	for in, want := range tests {
		if got := MD(in); got != want {
			t.Errorf("MD(%q) = %q, want %q", in, got, want)
		}
	}
}
