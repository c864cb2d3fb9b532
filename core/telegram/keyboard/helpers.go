// Package keyboard describes reply and inline keyboards independently of
// telebot, so conversation code can be tested without a bot.
package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn is an inline button whose Data is sent back verbatim as the
// callback payload.
type InlineBtn struct {
	Text string
	Data string
}

// Button returns an inline button.
func Button(text, payload string) InlineBtn {
	return InlineBtn{Text: text, Data: payload}
}

// Layout is a keyboard to attach to a message. Remove wins over Inline,
// which wins over Reply.
type Layout struct {
	Reply  [][]string
	Inline [][]InlineBtn
	Remove bool
}

// Reply returns a reply keyboard with one row per argument.
func Reply(rows ...[]string) *Layout { return &Layout{Reply: rows} }

// Inline returns an inline keyboard with one row per argument.
func Inline(rows ...[]InlineBtn) *Layout { return &Layout{Inline: rows} }

// Markup converts l to telebot markup. A nil or empty layout gives nil.
func (l *Layout) Markup() *tele.ReplyMarkup {
	switch {
	case l == nil:
		return nil
	case l.Remove:
		return &tele.ReplyMarkup{RemoveKeyboard: true}
	case len(l.Inline) > 0:
		rows := make([][]tele.InlineButton, 0, len(l.Inline))
		for _, row := range l.Inline {
			out := make([]tele.InlineButton, 0, len(row))
			for _, b := range row {
				out = append(out, tele.InlineButton{Text: b.Text, Data: b.Data})
			}
			rows = append(rows, out)
		}
		return &tele.ReplyMarkup{InlineKeyboard: rows}
	case len(l.Reply) > 0:
		rows := make([][]tele.ReplyButton, 0, len(l.Reply))
		for _, row := range l.Reply {
			out := make([]tele.ReplyButton, 0, len(row))
			for _, label := range row {
				out = append(out, tele.ReplyButton{Text: label})
			}
			rows = append(rows, out)
		}
		return &tele.ReplyMarkup{ReplyKeyboard: rows, ResizeKeyboard: true}
	}
	return nil
}

// Chunk lays buttons out n per row; n below 1 counts as 1.
func Chunk(buttons []InlineBtn, n int) [][]InlineBtn {
	n = max(n, 1)
	rows := make([][]InlineBtn, 0, (len(buttons)+n-1)/n)
	for len(buttons) > 0 {
		k := min(n, len(buttons))
		rows = append(rows, buttons[:k])
		buttons = buttons[k:]
	}
	return rows
}
