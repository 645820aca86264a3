package ingestion

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CleanText derives processed_text from raw extractor output: NFC
// normalization, control and zero-width character stripping, then whitespace
// collapse. Paragraph breaks survive as single blank lines.
func CleanText(s string) string {
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case r == '\u200b' || r == '\ufeff' || r == '\u00ad':
			// zero-width space, BOM, soft hyphen
		case unicode.IsControl(r):
		case !unicode.IsPrint(r) && !unicode.IsSpace(r):
		default:
			b.WriteRune(r)
		}
	}

	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
