package formatter

import "strings"

// escapeString escapes characters the parser would otherwise read as the end of
// a string or as an escape sequence.
func escapeString(s string) string {
	if !strings.ContainsAny(s, "\"\\\n\t\r") {
		return s
	}

	var buf strings.Builder
	buf.Grow(len(s) + 8)

	for _, c := range s {
		switch c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\t':
			buf.WriteString(`\t`)
		case '\r':
			buf.WriteString(`\r`)
		default:
			buf.WriteRune(c)
		}
	}

	return buf.String()
}

func writeQuoted(buf *strings.Builder, s string) {
	buf.WriteByte('"')
	buf.WriteString(escapeString(s))
	buf.WriteByte('"')
}
