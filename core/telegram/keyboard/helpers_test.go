package keyboard

import "testing"

func TestChunk(t *testing.T) {
	btns := []InlineBtn{Button("a", "x_a"), Button("b", "x_b"), Button("c", "x_c")}
	rows := Chunk(btns, 2)
	if len(rows) != 2 || len(rows[0]) != 2 || len(rows[1]) != 1 {
		t.Fatalf("rows = %+v", rows)
	}
	if len(Chunk(btns, 0)) != 3 {
		t.Fatal("n<=1 should give one button per row")
	}
}

func TestMarkupRawPayload(t *testing.T) {
	m := Inline([]InlineBtn{Button("Board", "sprint_menu")}).Markup()
	if m == nil || len(m.InlineKeyboard) != 1 {
		t.Fatalf("markup = %+v", m)
	}
	if got := m.InlineKeyboard[0][0].Data; got != "sprint_menu" {
		t.Fatalf("data = %q", got)
	}
	if m.InlineKeyboard[0][0].Unique != "" {
		t.Fatal("raw payload buttons must not carry a unique key")
	}
}

func TestMarkupVariants(t *testing.T) {
	var nilLayout *Layout
	if nilLayout.Markup() != nil {
		t.Fatal("nil layout should yield nil markup")
	}
	if m := (&Layout{Remove: true}).Markup(); m == nil || !m.RemoveKeyboard {
		t.Fatal("expected remove keyboard")
	}
	m := Reply([]string{"My Tasks", "New Task"}).Markup()
	if m == nil || !m.ResizeKeyboard || len(m.ReplyKeyboard) != 1 || len(m.ReplyKeyboard[0]) != 2 {
		t.Fatalf("reply markup = %+v", m)
	}
}
