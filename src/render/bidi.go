package render

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Heuristic right-to-left handling. This is deliberately not a UAX#9
// implementation: detection checks Hebrew/Arabic ranges, explicit
// directional markers, and known mojibake patterns, and repair is a
// best-effort, lossy-tolerant normalization.

// Directional formatting characters that indicate RTL content even when
// the letters themselves were mangled.
var rtlMarkers = []string{
	"‏", // RIGHT-TO-LEFT MARK
	"‫", // RIGHT-TO-LEFT EMBEDDING
	"‮", // RIGHT-TO-LEFT OVERRIDE
	"⁧", // RIGHT-TO-LEFT ISOLATE
}

// Escaped-codepoint fragments that survive bad decoding of RTL text.
var rtlEscapePatterns = []string{
	`\u05`, // Hebrew block
	`\u06`, // Arabic block
}

// UTF-8 Hebrew read as cp1252 always starts with the multiplication sign
// (0xD7), so its presence is the mojibake signal.
const mojibakeSignal = "×"

// IsRTL reports whether s should be treated as right-to-left text.
func IsRTL(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hebrew, r) || unicode.Is(unicode.Arabic, r) {
			return true
		}
	}
	for _, m := range rtlMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	for _, p := range rtlEscapePatterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return strings.Contains(s, mojibakeSignal)
}

// WrapRTL wraps rendered text in a directional block marker pair so it
// displays correctly inside a left-to-right document.
func WrapRTL(s string) string {
	return "<div dir=\"rtl\">\n\n" + s + "\n\n</div>"
}

// hebrewRepairs maps UTF-8 Hebrew mis-decoded as cp1252 back to the
// intended letters. The table is known-incomplete and order-dependent;
// first match wins and missing letters fall through to the re-decode pass.
var hebrewRepairs = []struct{ garbled, fixed string }{
	{"×‘", "ב"},
	{"×’", "ג"},
	{"×“", "ד"},
	{"×”", "ה"},
	{"×•", "ו"},
	{"×–", "ז"},
	{"×—", "ח"},
	{"×˜", "ט"},
	{"×™", "י"},
	{"×š", "ך"},
	{"×›", "כ"},
	{"×œ", "ל"},
	{"×", "ם"},
	{"×ž", "מ"},
	{"×Ÿ", "ן"},
	{"× ", "נ"},
	{"×¡", "ס"},
	{"×¢", "ע"},
	{"×£", "ף"},
	{"×¤", "פ"},
	{"×¥", "ץ"},
	{"×¦", "צ"},
	{"×§", "ק"},
	{"×¨", "ר"},
	{"×©", "ש"},
	{"×ª", "ת"},
	{"×", "א"},
}

// RepairText attempts to restore garbled RTL text. It never fails: the
// table is applied first, then a full cp1252-to-UTF-8 re-decode, then as a
// last resort characters outside safe ranges are stripped.
func RepairText(s string) string {
	if !strings.Contains(s, mojibakeSignal) {
		return s
	}
	for _, rep := range hebrewRepairs {
		s = strings.ReplaceAll(s, rep.garbled, rep.fixed)
	}
	if !strings.Contains(s, mojibakeSignal) {
		return s
	}
	if redecoded, ok := redecodeUTF8(s); ok {
		return redecoded
	}
	return stripUnsafe(s)
}

// redecodeUTF8 re-encodes each rune as its single-byte cp1252/Latin-1
// value and decodes the result as UTF-8. Only usable when every rune fits
// in one byte.
func redecodeUTF8(s string) (string, bool) {
	raw := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := cp1252Byte(r)
		if !ok {
			return "", false
		}
		raw = append(raw, b)
	}
	if !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

// cp1252Byte inverts the cp1252 decoding of a single byte.
func cp1252Byte(r rune) (byte, bool) {
	if r < 0x100 {
		return byte(r), true
	}
	switch r {
	case '€':
		return 0x80, true
	case '‚':
		return 0x82, true
	case 'ƒ':
		return 0x83, true
	case '„':
		return 0x84, true
	case '…':
		return 0x85, true
	case '†':
		return 0x86, true
	case '‡':
		return 0x87, true
	case 'ˆ':
		return 0x88, true
	case '‰':
		return 0x89, true
	case 'Š':
		return 0x8a, true
	case '‹':
		return 0x8b, true
	case 'Œ':
		return 0x8c, true
	case 'Ž':
		return 0x8e, true
	case '‘':
		return 0x91, true
	case '’':
		return 0x92, true
	case '“':
		return 0x93, true
	case '”':
		return 0x94, true
	case '•':
		return 0x95, true
	case '–':
		return 0x96, true
	case '—':
		return 0x97, true
	case '˜':
		return 0x98, true
	case '™':
		return 0x99, true
	case 'š':
		return 0x9a, true
	case '›':
		return 0x9b, true
	case 'œ':
		return 0x9c, true
	case 'ž':
		return 0x9e, true
	case 'Ÿ':
		return 0x9f, true
	}
	return 0, false
}

// stripUnsafe drops characters outside ASCII, Hebrew, Arabic, and common
// whitespace. Lossy by design; garbled input must never abort rendering.
func stripUnsafe(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t' || (r >= 0x20 && r < 0x7f):
			sb.WriteRune(r)
		case unicode.Is(unicode.Hebrew, r) || unicode.Is(unicode.Arabic, r):
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
