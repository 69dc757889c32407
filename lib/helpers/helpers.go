package helpers

import (
	"strconv"
	"strings"
)

func EscapeMarkdownV2(text string) string {
	charactersToEscape := []string{"\\", ".", "-", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "=", "|", "{", "}", "!"}

	for _, char := range charactersToEscape {
		text = strings.ReplaceAll(text, char, "\\"+char)
	}
	return text
}

// EscapeCode escapes text placed inside a MarkdownV2 code span, where only
// the backtick and the backslash are reserved.
func EscapeCode(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	return strings.ReplaceAll(text, "`", "\\`")
}

// FormatRate renders a conversion result with exactly two decimals.
func FormatRate(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}
