package flow

import (
	"time"

	"github.com/m3rciful/sprintbot/core/telegram/callbacks"
	"github.com/m3rciful/sprintbot/core/telegram/keyboard"
)

const (
	payloadDate = "2006-01-02"
	displayDate = "02.01.2006"

	pickerDays = 14
	pickerCols = 7
)

// datePicker lays out two weeks starting at from. Paging back stops at today.
func datePicker(from, today time.Time) *keyboard.Layout {
	days := make([]keyboard.InlineBtn, 0, pickerDays)
	for i := 0; i < pickerDays; i++ {
		day := from.AddDate(0, 0, i)
		days = append(days, keyboard.Button(day.Format("02.01"), callbacks.Build("date", "pick", day.Format(payloadDate))))
	}
	rows := keyboard.Chunk(days, pickerCols)

	var nav []keyboard.InlineBtn
	if from.After(today) {
		prev := from.AddDate(0, 0, -pickerDays)
		if prev.Before(today) {
			prev = today
		}
		nav = append(nav, keyboard.Button("◀️", callbacks.Build("date", "page", prev.Format(payloadDate))))
	}
	nav = append(nav,
		keyboard.Button("❌ Cancel", callbacks.Build("date", "cancel")),
		keyboard.Button("▶️", callbacks.Build("date", "page", from.AddDate(0, 0, pickerDays).Format(payloadDate))),
	)
	return keyboard.Inline(append(rows, nav)...)
}
