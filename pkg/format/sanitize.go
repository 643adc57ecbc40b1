package format

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const hexDigits = "0123456789abcdef"

// SanitizeTerminal makes a field value safe to draw in the TUI. Control
// characters, format characters such as bidi overrides (U+202E) and invalid
// UTF-8 bytes are rewritten as visible escapes ("\x1b", "\u202e"), so a
// thread name cannot smuggle terminal sequences or reorder the table.
// Tabs and newlines are kept.
func SanitizeTerminal(s string) string {
	idx := 0
	for idx < len(s) {
		r, size := utf8.DecodeRuneInString(s[idx:])
		if r == utf8.RuneError && size == 1 {
			break
		}
		if r != '\n' && r != '\t' && unsafeRune(r) {
			break
		}
		idx += size
	}
	if idx == len(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	b.WriteString(s[:idx])

	for idx < len(s) {
		r, size := utf8.DecodeRuneInString(s[idx:])
		switch {
		case r == utf8.RuneError && size == 1:
			writeEscapedByte(&b, s[idx])
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case unsafeRune(r):
			writeEscapedRune(&b, r)
		default:
			b.WriteString(s[idx : idx+size])
		}
		idx += size
	}
	return b.String()
}

// SingleLine sanitizes s and folds line breaks and tabs into spaces, for
// values drawn inside one table cell.
func SingleLine(s string) string {
	s = SanitizeTerminal(s)
	if !strings.ContainsAny(s, "\n\t\r") {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}

func writeEscapedByte(b *strings.Builder, bt byte) {
	b.WriteString(`\x`)
	b.WriteByte(hexDigits[bt>>4])
	b.WriteByte(hexDigits[bt&0x0f])
}

func unsafeRune(r rune) bool {
	return unicode.IsControl(r) || unicode.Is(unicode.Cf, r)
}

func writeEscapedRune(b *strings.Builder, r rune) {
	if r <= 0xFF {
		writeEscapedByte(b, byte(r))
		return
	}
	prefix, top := `\u`, 12
	if r > 0xFFFF {
		prefix, top = `\U`, 28
	}
	b.WriteString(prefix)
	for shift := top; shift >= 0; shift -= 4 {
		b.WriteByte(hexDigits[(r>>uint(shift))&0x0f])
	}
}
