// Package format escapes user text for Telegram's legacy Markdown mode.
package format

import "strings"

var mdEscaper = strings.NewReplacer(
	`_`, `\_`,
	`*`, `\*`,
	"`", "\\`",
	`[`, `\[`,
)

// MD escapes the characters that legacy Markdown treats as markup, so task
// titles and sprint names render literally.
func MD(text string) string {
	return mdEscaper.Replace(text)
}
