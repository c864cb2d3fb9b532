package callbacks

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw    string
		ns     string
		action string
		params []string
	}{
		{"sprint_menu", "sprint", "menu", []string{}},
		{"task_done_17", "task", "done", []string{"17"}},
		{"date_pick_2026-10-15", "date", "pick", []string{"2026-10-15"}},
		{"sprint_endconfirm_4", "sprint", "endconfirm", []string{"4"}},
	}
	for _, tt := range tests {
		p, err := Parse(tt.raw)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.raw, err)
		}
		if p.Namespace != tt.ns || p.Action != tt.action || !reflect.DeepEqual(p.Params, tt.params) {
			t.Errorf("Parse(%q) = %+v", tt.raw, p)
		}
	}
}

func TestParseMalformed(t *testing.T) {
	for _, raw := range []string{"", "sprint", "_menu", "sprint_"} {
		if _, err := Parse(raw); !errors.Is(err, ErrMalformed) {
			t.Errorf("Parse(%q) err = %v", raw, err)
		}
	}
}

func TestInt64Param(t *testing.T) {
	p, _ := Parse("task_delete_42")
	id, err := p.Int64(0)
	if err != nil || id != 42 {
		t.Fatalf("Int64 = %d, %v", id, err)
	}
	if _, err := p.Int64(1); err == nil {
		t.Fatal("expected error for missing param")
	}
	if p.Param(3) != "" {
		t.Fatal("out of range param should be empty")
	}
}

func TestBuild(t *testing.T) {
	if got := Build("task", "done", 5); got != "task_done_5" {
		t.Fatalf("Build = %q", got)
	}
	if got := Build("main", "menu"); got != "main_menu" {
		t.Fatalf("Build = %q", got)
	}
}
