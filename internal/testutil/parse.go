package testutil

import (
	"fmt"
	"strings"
)

// node is one parsed term. Quoted triples hold their three inner terms.
type node struct {
	text   string
	blank  bool
	quoted []node
}

// parseStatement tokenizes an N-Triples / N-Quads line with RDF-star
// quoted triples. A trailing " ." is optional.
func parseStatement(line string) ([]node, error) {
	p := &lineParser{s: strings.TrimSpace(line)}
	var out []node
	for {
		p.skipSpace()
		if p.done() || p.peek() == '.' && p.rest() == "." {
			break
		}
		n, err := p.term()
		if err != nil {
			return nil, fmt.Errorf("%q: %w", line, err)
		}
		out = append(out, n)
	}
	if len(out) < 3 || len(out) > 4 {
		return nil, fmt.Errorf("%q: expected 3 or 4 terms, got %d", line, len(out))
	}
	return out, nil
}

type lineParser struct {
	s   string
	pos int
}

func (p *lineParser) done() bool   { return p.pos >= len(p.s) }
func (p *lineParser) peek() byte   { return p.s[p.pos] }
func (p *lineParser) rest() string { return p.s[p.pos:] }

func (p *lineParser) skipSpace() {
	for !p.done() && (p.peek() == ' ' || p.peek() == '\t') {
		p.pos++
	}
}

func (p *lineParser) term() (node, error) {
	switch {
	case strings.HasPrefix(p.rest(), "<<"):
		p.pos += 2
		var inner []node
		for i := 0; i < 3; i++ {
			p.skipSpace()
			n, err := p.term()
			if err != nil {
				return node{}, err
			}
			inner = append(inner, n)
		}
		p.skipSpace()
		if !strings.HasPrefix(p.rest(), ">>") {
			return node{}, fmt.Errorf("unterminated quoted triple at %d", p.pos)
		}
		p.pos += 2
		return node{quoted: inner}, nil

	case p.peek() == '<':
		end := strings.IndexByte(p.rest(), '>')
		if end < 0 {
			return node{}, fmt.Errorf("unterminated IRI at %d", p.pos)
		}
		n := node{text: p.rest()[:end+1]}
		p.pos += end + 1
		return n, nil

	case strings.HasPrefix(p.rest(), "_:"):
		start := p.pos
		for !p.done() && p.peek() != ' ' && p.peek() != '\t' {
			p.pos++
		}
		return node{text: p.s[start:p.pos], blank: true}, nil

	case p.peek() == '"':
		start := p.pos
		p.pos++
		for {
			if p.done() {
				return node{}, fmt.Errorf("unterminated literal at %d", start)
			}
			c := p.peek()
			p.pos++
			if c == '\\' {
				p.pos++
				continue
			}
			if c == '"' {
				break
			}
		}
		switch {
		case !p.done() && p.peek() == '@':
			for !p.done() && p.peek() != ' ' && p.peek() != '\t' {
				p.pos++
			}
		case strings.HasPrefix(p.rest(), "^^<"):
			end := strings.IndexByte(p.rest(), '>')
			if end < 0 {
				return node{}, fmt.Errorf("unterminated datatype at %d", p.pos)
			}
			p.pos += end + 1
		}
		return node{text: p.s[start:p.pos]}, nil
	}
	return node{}, fmt.Errorf("unexpected character %q at %d", p.peek(), p.pos)
}

// render serializes a term, renaming blank nodes through m.
func (n node) render(m map[string]string) string {
	if n.quoted != nil {
		parts := make([]string, len(n.quoted))
		for i, q := range n.quoted {
			parts[i] = q.render(m)
		}
		return "<< " + strings.Join(parts, " ") + " >>"
	}
	if n.blank && m != nil {
		if v, ok := m[n.text]; ok {
			return v
		}
	}
	return n.text
}

// blanks appends the blank node labels of n (including inside quotes).
func (n node) blanks(out []string) []string {
	if n.blank {
		return append(out, n.text)
	}
	for _, q := range n.quoted {
		out = q.blanks(out)
	}
	return out
}
