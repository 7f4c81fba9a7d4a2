package term

import (
	"fmt"
	"strings"
)

// segment is either static text or a placeholder reference.
type segment struct {
	text  string
	isRef bool
}

// Template is a parsed `{ref}` template.
type Template struct {
	raw      string
	segments []segment
}

// ParseTemplate splits a template into static text and references.
//
// `\{` and `\}` are literal braces both in static text and inside reference
// names. An unescaped brace without its partner is an error.
func ParseTemplate(raw string) (Template, error) {
	t := Template{raw: raw}
	var cur strings.Builder
	inRef := false

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '\\' && i+1 < len(raw) && (raw[i+1] == '{' || raw[i+1] == '}') {
			cur.WriteByte(raw[i+1])
			i++
			continue
		}
		switch c {
		case '{':
			if inRef {
				return Template{}, fmt.Errorf("template %q: nested '{' at offset %d", raw, i)
			}
			if cur.Len() > 0 {
				t.segments = append(t.segments, segment{text: cur.String()})
				cur.Reset()
			}
			inRef = true
		case '}':
			if !inRef {
				return Template{}, fmt.Errorf("template %q: unmatched '}' at offset %d", raw, i)
			}
			if cur.Len() == 0 {
				return Template{}, fmt.Errorf("template %q: empty reference at offset %d", raw, i)
			}
			t.segments = append(t.segments, segment{text: cur.String(), isRef: true})
			cur.Reset()
			inRef = false
		default:
			cur.WriteByte(c)
		}
	}
	if inRef {
		return Template{}, fmt.Errorf("template %q: unterminated reference", raw)
	}
	if cur.Len() > 0 {
		t.segments = append(t.segments, segment{text: cur.String()})
	}
	return t, nil
}

// References returns the referenced names in order of appearance.
func (t Template) References() []string {
	var refs []string
	for _, s := range t.segments {
		if s.isRef {
			refs = append(refs, s.text)
		}
	}
	return refs
}

// String returns the raw template.
func (t Template) String() string {
	return t.raw
}

// Render substitutes references using lookup. encode is applied to
// substituted values only. Returns ok=false if any reference is null.
func (t Template) Render(lookup func(string) string, encode func(string) string) (string, bool) {
	var b strings.Builder
	for _, s := range t.segments {
		if !s.isRef {
			b.WriteString(s.text)
			continue
		}
		v := lookup(s.text)
		if v == "" {
			return "", false
		}
		if encode != nil {
			v = encode(v)
		}
		b.WriteString(v)
	}
	return b.String(), true
}
