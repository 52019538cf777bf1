package config

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokLBrace
	tokRBrace
	tokSemi
	tokEOF
)

type token struct {
	kind tokenKind
	text string // decoded value for tokWord (escapes already applied)
	line int
}

// lexer turns a source buffer into a token stream, skipping whitespace and
// comments between tokens. It
// follows the same "small stateful scanner with explicit error returns"
// shape as pkg/minicli's inputLexer, adapted to this grammar.
type lexer struct {
	src  []rune
	pos  int
	line int
	file string
}

func newLexer(file, src string) *lexer {
	return &lexer{src: []rune(src), line: 1, file: file}
}

func (l *lexer) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%s:%d: %s", l.file, l.line, fmt.Sprintf(format, args...))
}

func (l *lexer) peek() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *lexer) advance() (rune, bool) {
	r, ok := l.peek()
	if !ok {
		return 0, false
	}
	l.pos++
	if r == '\n' {
		l.line++
	}
	return r, true
}

func (l *lexer) skipWhitespaceAndComments() error {
	for {
		r, ok := l.peek()
		if !ok {
			return nil
		}

		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			l.advance()
		case r == '#':
			for {
				r, ok := l.advance()
				if !ok || r == '\n' {
					break
				}
			}
		case r == '/' && l.at(1) == '/':
			l.advance()
			l.advance()
			for {
				r, ok := l.advance()
				if !ok || r == '\n' {
					break
				}
			}
		case r == '/' && l.at(1) == '*':
			startLine := l.line
			l.advance()
			l.advance()
			closed := false
			for {
				r, ok := l.advance()
				if !ok {
					break
				}
				if r == '*' && l.at(0) == '/' {
					l.advance()
					closed = true
					break
				}
			}
			if !closed {
				return l.errorf("unterminated comment starting at line %d", startLine)
			}
		default:
			return nil
		}
	}
}

func (l *lexer) at(offset int) rune {
	idx := l.pos + offset
	if idx < 0 || idx >= len(l.src) {
		return 0
	}
	return l.src[idx]
}

var escapeMap = map[rune]rune{
	'n': '\n', 'r': '\r', 't': '\t', 'v': '\v',
	'b': '\b', 'a': '\a', 'f': '\f',
	'"': '"', '\\': '\\',
}

func (l *lexer) lexQuoted() (string, error) {
	startLine := l.line
	l.advance() // opening quote
	var sb strings.Builder
	for {
		r, ok := l.advance()
		if !ok {
			return "", l.errorf("unterminated string starting at line %d", startLine)
		}
		if r == '"' {
			return sb.String(), nil
		}
		if r == '\\' {
			esc, ok := l.advance()
			if !ok {
				return "", l.errorf("unterminated escape in string starting at line %d", startLine)
			}
			if mapped, ok := escapeMap[esc]; ok {
				sb.WriteRune(mapped)
			} else {
				sb.WriteRune(esc)
			}
			continue
		}
		sb.WriteRune(r)
	}
}

func isBareRune(r rune) bool {
	switch r {
	case ' ', '\t', '\r', '\n', '{', '}', ';', '"', '#':
		return false
	}
	return true
}

func (l *lexer) lexBare() string {
	var sb strings.Builder
	for {
		r, ok := l.peek()
		if !ok || !isBareRune(r) {
			break
		}
		// '/' only terminates a bare word if it starts a comment.
		if r == '/' && (l.at(1) == '/' || l.at(1) == '*') {
			break
		}
		sb.WriteRune(r)
		l.advance()
	}
	return sb.String()
}

func (l *lexer) next() (token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return token{}, err
	}

	line := l.line
	r, ok := l.peek()
	if !ok {
		return token{kind: tokEOF, line: line}, nil
	}

	switch r {
	case '{':
		l.advance()
		return token{kind: tokLBrace, line: line}, nil
	case '}':
		l.advance()
		return token{kind: tokRBrace, line: line}, nil
	case ';':
		l.advance()
		return token{kind: tokSemi, line: line}, nil
	case '"':
		s, err := l.lexQuoted()
		if err != nil {
			return token{}, err
		}
		return token{kind: tokWord, text: s, line: line}, nil
	default:
		s := l.lexBare()
		if s == "" {
			return token{}, l.errorf("unexpected character %q", r)
		}
		return token{kind: tokWord, text: s, line: line}, nil
	}
}
