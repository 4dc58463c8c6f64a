package rules

import (
	"regexp"
	"strings"
)

var (
	sourceBlockRe = regexp.MustCompile(`\[source(?:,[^\]]+)?\]`)
	fenceRe       = regexp.MustCompile(`----+`)
	boldRe        = regexp.MustCompile(`\*([^*]+)\*`)
	italicRe      = regexp.MustCompile(`_([^_]+)_`)
	codeRe        = regexp.MustCompile("`([^`]+)`")
	blankRunRe    = regexp.MustCompile(`\n\s*\n\s*\n+`)
	indentRe      = regexp.MustCompile(`(?m)^[ \t]+`)
)

// CleanText strips AsciiDoc source blocks and Markdown emphasis from rule text.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = sourceBlockRe.ReplaceAllString(text, "")
	text = fenceRe.ReplaceAllString(text, "")

	text = boldRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")
	text = codeRe.ReplaceAllString(text, "$1")

	text = blankRunRe.ReplaceAllString(text, "\n\n")
	text = indentRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
