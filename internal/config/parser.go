package config

import (
	"fmt"
	"strings"
)

// Includer resolves the path argument of a $INCLUDE directive to file
// content. Production code backs this with the filesystem; tests can
// supply an in-memory map.
type Includer interface {
	ReadFile(path string) (string, error)
}

type parser struct {
	lex      *lexer
	lookahead *token
	includer Includer
	path     string
	depth    int
}

const maxIncludeDepth = 16

// Parse parses the named file (reading it via includer) into a top-level
// entry list, inlining $INCLUDE directives as it goes so that callers
// never observe an include boundary.
func Parse(path string, includer Includer) ([]*Entry, error) {
	src, err := includer.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	p := &parser{lex: newLexer(path, src), includer: includer, path: path}
	return p.parseBlock(false)
}

func ParseString(path, src string, includer Includer) ([]*Entry, error) {
	p := &parser{lex: newLexer(path, src), includer: includer, path: path}
	return p.parseBlock(false)
}

func (p *parser) next() (token, error) {
	if p.lookahead != nil {
		t := *p.lookahead
		p.lookahead = nil
		return t, nil
	}
	return p.lex.next()
}

func (p *parser) peek() (token, error) {
	if p.lookahead == nil {
		t, err := p.lex.next()
		if err != nil {
			return token{}, err
		}
		p.lookahead = &t
	}
	return *p.lookahead, nil
}

// parseBlock reads statements until a matching '}' (inBrace=true) or EOF
// (inBrace=false, top level).
func (p *parser) parseBlock(inBrace bool) ([]*Entry, error) {
	var out []*Entry

	for {
		t, err := p.peek()
		if err != nil {
			return nil, err
		}

		if t.kind == tokEOF {
			if inBrace {
				return nil, fmt.Errorf("%s:%d: unexpected EOF, expected }", p.path, t.line)
			}
			return out, nil
		}
		if t.kind == tokRBrace {
			if !inBrace {
				return nil, fmt.Errorf("%s:%d: unexpected }", p.path, t.line)
			}
			p.next()
			return out, nil
		}
		if t.kind == tokSemi {
			// Stray semicolon; tolerate it like an empty statement.
			p.next()
			continue
		}

		entries, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
}

// parseStatement parses one entry (or, for $INCLUDE, the entries it
// expands to) and returns the entries it produced.
func (p *parser) parseStatement() ([]*Entry, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}

	if t.kind == tokLBrace {
		// Anonymous list.
		children, err := p.parseBlock(true)
		if err != nil {
			return nil, err
		}
		p.consumeOptionalSemi()
		return []*Entry{{Name: "", Type: List, Children: children}}, nil
	}

	if t.kind != tokWord {
		return nil, fmt.Errorf("%s:%d: expected a name, got token kind %d", p.path, t.line, t.kind)
	}

	name := t.text

	if strings.EqualFold(name, "$INCLUDE") {
		return p.parseInclude()
	}

	t2, err := p.peek()
	if err != nil {
		return nil, err
	}

	switch t2.kind {
	case tokLBrace:
		p.next()
		children, err := p.parseBlock(true)
		if err != nil {
			return nil, err
		}
		p.consumeOptionalSemi()
		return []*Entry{{Name: name, Type: List, Children: children}}, nil

	case tokSemi:
		p.next()
		// "bare;" is an anonymous data entry whose value is the bare
		// word, e.g. a line in an `administrators { ... }` list.
		return []*Entry{{Name: "", Type: Data, Value: name}}, nil

	case tokWord:
		p.next()
		if err := p.expectSemi(); err != nil {
			return nil, err
		}
		return []*Entry{{Name: name, Type: Data, Value: t2.text}}, nil

	default:
		return nil, fmt.Errorf("%s:%d: unexpected token after %q", p.path, t2.line, name)
	}
}

func (p *parser) parseInclude() ([]*Entry, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	if t.kind != tokWord {
		return nil, fmt.Errorf("%s:%d: $INCLUDE requires a path string", p.path, t.line)
	}
	if err := p.expectSemi(); err != nil {
		return nil, err
	}

	if p.depth >= maxIncludeDepth {
		return nil, fmt.Errorf("%s: $INCLUDE nesting too deep (possible cycle)", p.path)
	}
	if p.includer == nil {
		return nil, fmt.Errorf("%s: $INCLUDE used with no includer configured", p.path)
	}

	src, err := p.includer.ReadFile(t.text)
	if err != nil {
		return nil, fmt.Errorf("$INCLUDE %s: %w", t.text, err)
	}

	child := &parser{lex: newLexer(t.text, src), includer: p.includer, path: t.text, depth: p.depth + 1}
	return child.parseBlock(false)
}

func (p *parser) expectSemi() error {
	t, err := p.next()
	if err != nil {
		return err
	}
	if t.kind != tokSemi {
		return fmt.Errorf("%s:%d: expected ;", p.path, t.line)
	}
	return nil
}

func (p *parser) consumeOptionalSemi() {
	t, err := p.peek()
	if err == nil && t.kind == tokSemi {
		p.next()
	}
}
