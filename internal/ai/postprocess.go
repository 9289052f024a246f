package ai

import (
	"regexp"
	"strings"
)

const currencyMark = "\x00"

var (
	currencyPrefix  = regexp.MustCompile(`\b(R|US|U)\$`)
	horizontalSpace = regexp.MustCompile(`[ \t\x{00A0}\x{2000}-\x{200A}\x{202F}]+`)
)

// CleanResponse removes markdown-math dollar artifacts, unescapes "\$",
// collapses horizontal whitespace and keeps line breaks. Currency prefixes
// such as R$ and US$ survive.
func CleanResponse(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, `\$`, "$")
	text = strings.ReplaceAll(text, currencyMark, "")
	text = currencyPrefix.ReplaceAllString(text, "${1}"+currencyMark)
	text = strings.ReplaceAll(text, "$", "")
	text = strings.ReplaceAll(text, currencyMark, "$")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = horizontalSpace.ReplaceAllString(line, " ")
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
