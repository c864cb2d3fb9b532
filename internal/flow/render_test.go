package flow

import (
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/sprintbot/internal/domain"
)

func TestProgressBar(t *testing.T) {
	cases := []struct {
		done, total int
		filled      int
		pct         string
	}{
		{0, 0, 0, "0%"},
		{1, 2, 5, "50%"},
		{2, 3, 7, "67%"},
		{1, 20, 1, "5%"},
		{4, 4, 10, "100%"},
	}
	for _, c := range cases {
		got := progressBar(c.done, c.total)
		if n := strings.Count(got, "█"); n != c.filled {
			t.Errorf("progressBar(%d,%d) filled %d, want %d", c.done, c.total, n, c.filled)
		}
		if n := strings.Count(got, "░"); n != progressCells-c.filled {
			t.Errorf("progressBar(%d,%d) empty %d", c.done, c.total, n)
		}
		if !strings.HasSuffix(got, c.pct) {
			t.Errorf("progressBar(%d,%d) = %q, want suffix %q", c.done, c.total, got, c.pct)
		}
	}
}

func TestTaskBreakdownOrder(t *testing.T) {
	out := taskBreakdown([]domain.Task{
		{ID: 1, Title: "shipped", Status: domain.StatusDone},
		{ID: 2, Title: "testing", Status: domain.StatusInQA},
		{ID: 3, Title: "queued", Status: domain.StatusSelected},
		{ID: 4, Title: "coding", Status: domain.StatusInProgress},
	})
	order := []string{"Selected for development", "In progress", "In QA", "Done"}
	last := -1
	for _, label := range order {
		i := strings.Index(out, "*"+label+"*")
		if i < 0 || i < last {
			t.Fatalf("%q out of order in:\n%s", label, out)
		}
		last = i
	}
	if strings.Contains(out, "Delayed") {
		t.Fatal("empty groups must be omitted")
	}
	if taskBreakdown(nil) != "No tasks yet." {
		t.Fatal("empty breakdown")
	}
}

func TestDatePickerLayout(t *testing.T) {
	today := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

	kb := datePicker(today, today)
	if len(kb.Inline) != 3 || len(kb.Inline[0]) != pickerCols || len(kb.Inline[1]) != pickerCols {
		t.Fatalf("rows = %+v", kb.Inline)
	}
	if got := kb.Inline[0][0].Data; got != "date_pick_2026-10-15" {
		t.Fatalf("first day payload = %q", got)
	}
	nav := kb.Inline[2]
	if len(nav) != 2 || nav[1].Data != "date_page_2026-10-29" {
		t.Fatalf("nav on first page = %+v", nav)
	}

	kb = datePicker(today.AddDate(0, 0, 7), today)
	nav = kb.Inline[2]
	if len(nav) != 3 || nav[0].Data != "date_page_2026-10-15" {
		t.Fatalf("back paging must stop at today: %+v", nav)
	}
}

func TestParseSelectionID(t *testing.T) {
	cases := map[string]int64{
		"7":                  7,
		" ID: 12 - Fix bug ": 12,
		"id:3":               3,
		"ID: 4 - a - b - c":  4,
		"seven":              0,
		"ID: x - nope":       0,
		"-2":                 0,
		"Task 5":             0,
	}
	for in, want := range cases {
		got, ok := parseSelectionID(in)
		if want == 0 && ok {
			t.Errorf("parseSelectionID(%q) accepted %d", in, got)
		}
		if want != 0 && (!ok || got != want) {
			t.Errorf("parseSelectionID(%q) = %d %v, want %d", in, got, ok, want)
		}
	}
}

func TestIsCancel(t *testing.T) {
	for _, in := range []string{"Cancel", "cancel", " /CANCEL "} {
		if !isCancel(in) {
			t.Errorf("isCancel(%q) = false", in)
		}
	}
	if isCancel("cancel it") {
		t.Fatal("partial match accepted")
	}
}
