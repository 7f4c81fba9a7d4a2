package term

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/rmlstar/internal/ir"
)

const upperhex = "0123456789ABCDEF"

// PercentEncode encodes every byte of s outside ALPHA / DIGIT / "-._~" and
// the extra safe characters as %XX (upper-case hex over the UTF-8 bytes).
func PercentEncode(s, safe string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) || (c < 0x80 && strings.IndexByte(safe, c) >= 0) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	"\n", `\n`,
	"\t", `\t`,
	"\b", `\b`,
	"\f", `\f`,
	"\r", `\r`,
	`"`, `\"`,
	`'`, `\'`,
)

// EscapeLiteral escapes a literal lexical form for N-Triples.
// strings.Replacer scans left to right, so a backslash is never escaped twice.
func EscapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}

// NaturalMap applies the lexical natural mapping for datatype.
// ok is false when the value cannot be converted (the term becomes null).
func NaturalMap(value, datatype string) (string, bool) {
	switch datatype {
	case ir.XSDBoolean:
		return strings.ToLower(value), true
	case ir.XSDDateTime:
		return strings.Replace(value, " ", "T", 1), true
	case ir.XSDInteger:
		v := strings.TrimSpace(value)
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return strconv.FormatInt(n, 10), true
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return "", false
		}
		return strconv.FormatFloat(math.Trunc(f), 'f', -1, 64), true
	}
	return value, true
}

// cleanValue applies the per-value options to a referenced source value.
func (o Options) cleanValue(v string) string {
	if v == "" {
		return v
	}
	if o.NormalizeNFC {
		v = norm.NFC.String(v)
	}
	if o.OnlyPrintable {
		v = strings.Map(func(r rune) rune {
			if unicode.IsPrint(r) {
				return r
			}
			return -1
		}, v)
	}
	return v
}

// validIRI rejects characters N-Triples forbids inside <...>.
func validIRI(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r <= 0x20 || strings.ContainsRune("<>\"{}|^`\\", r) {
			return false
		}
	}
	return true
}

func validBlankLabel(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if unicode.IsSpace(r) || strings.ContainsRune("<>\"", r) {
			return false
		}
	}
	return true
}
