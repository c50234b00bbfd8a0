package score

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CleanNumber normalizes raw OCR output to a clean number string.
//
// Only the first line is considered. The text is NFKC-folded so full-width
// and compatibility digits become ASCII, commas become decimal points,
// apostrophe thousands-separators are dropped, common OCR letter/digit
// confusions (O→0, l/I→1, S→5) are corrected, degree signs and spaces are
// stripped, and the first number-like token (optional minus, digits,
// optional single decimal part) is extracted. Returns "" when no such token
// exists.
func CleanNumber(text string) string {
	line := firstLine(norm.NFKC.String(text))

	var b strings.Builder
	b.Grow(len(line))
	for _, c := range line {
		switch c {
		case ',':
			b.WriteByte('.')
		case '\'':
			// thousands separator
		case 'O':
			b.WriteByte('0')
		case 'l', 'I':
			b.WriteByte('1')
		case 'S':
			b.WriteByte('5')
		case '°', ' ':
			// units noise
		default:
			b.WriteRune(c)
		}
	}
	return firstNumberToken(b.String())
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// firstNumberToken scans for the first run matching [-]?digits[.digits]? and
// returns it verbatim.
func firstNumberToken(s string) string {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '-' && !isDigit(c) {
			continue
		}
		start := i
		if c == '-' {
			i++
		}
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		if i < len(s) && s[i] == '.' {
			i++
			for i < len(s) && isDigit(s[i]) {
				i++
			}
		}
		return s[start:i]
	}
	return ""
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
