// Package line implements the IRC line codec of spec §4.E: framing of
// CRLF-terminated, prefix+command+args+trailing lines, shared between
// client and peer connections. Grounded on the teacher's own line
// framing in internal/meshage/message.go (length-prefixed length check,
// "this much came in, here's the cutoff" discipline) generalized from a
// binary length prefix to IRC's textual CRLF delimiter, with parse rules
// taken directly from spec §4.E.
package line

import (
	"errors"
	"strings"
)

// MaxLine is the maximum encoded line length including the trailing
// CRLF, per spec §4.E ("Line length ≤ 512 bytes including CRLF").
const MaxLine = 512

// MaxArgs is the maximum number of whitespace-separated arguments,
// including a trailing arg, per spec §4.E ("up to 15 args").
const MaxArgs = 15

var (
	// ErrEmpty is returned by Parse for a blank line (after trimming);
	// callers should silently skip it, matching typical IRC laxness.
	ErrEmpty = errors.New("line: empty")
)

// Origin distinguishes a parsed prefix as identifying a Server or a
// Client, per spec §4.E ("a prefix containing '.' identifies a Server;
// otherwise a Client").
type Origin int

const (
	OriginNone Origin = iota
	OriginClient
	OriginServer
)

// Message is one parsed protocol line.
type Message struct {
	Prefix       string
	PrefixKind   Origin
	Command      string
	Args         []string // includes the trailing arg, if present, as the last element
	HasTrailing  bool
	Dirty        bool // never set by Framer, which discards an overrun line instead of returning it
}

// Trailing returns the final argument when the line carried a ":trailing"
// token, and ok=false otherwise.
func (m *Message) Trailing() (string, bool) {
	if !m.HasTrailing || len(m.Args) == 0 {
		return "", false
	}
	return m.Args[len(m.Args)-1], true
}

// Parse decodes one line with its terminating CRLF (or bare LF) already
// stripped by the caller's buffer scanner. maxArgs overrides MaxArgs when
// positive, letting peer links raise the burst argument ceiling per spec
// §4.E ("Peer form: implementations may raise the line limit for burst
// messages").
func Parse(raw string, maxArgs int) (*Message, error) {
	if maxArgs <= 0 {
		maxArgs = MaxArgs
	}

	s := strings.TrimRight(raw, "\r\n")
	s = strings.TrimLeft(s, " ")
	if s == "" {
		return nil, ErrEmpty
	}

	m := &Message{}

	if s[0] == ':' {
		sp := strings.IndexByte(s, ' ')
		if sp < 0 {
			return nil, errors.New("line: prefix with no command")
		}
		m.Prefix = s[1:sp]
		if strings.ContainsRune(m.Prefix, '.') {
			m.PrefixKind = OriginServer
		} else {
			m.PrefixKind = OriginClient
		}
		s = strings.TrimLeft(s[sp+1:], " ")
		if s == "" {
			return nil, errors.New("line: prefix with no command")
		}
	}

	// Command token.
	if sp := strings.IndexByte(s, ' '); sp >= 0 {
		m.Command = s[:sp]
		s = strings.TrimLeft(s[sp+1:], " ")
	} else {
		m.Command = s
		s = ""
	}
	if m.Command == "" {
		return nil, errors.New("line: empty command")
	}
	m.Command = strings.ToUpper(m.Command)

	for s != "" && len(m.Args) < maxArgs-1 {
		if s[0] == ':' {
			m.Args = append(m.Args, s[1:])
			m.HasTrailing = true
			s = ""
			break
		}
		sp := strings.IndexByte(s, ' ')
		if sp < 0 {
			m.Args = append(m.Args, s)
			s = ""
			break
		}
		m.Args = append(m.Args, s[:sp])
		s = strings.TrimLeft(s[sp+1:], " ")
	}
	// Whatever is left over after hitting maxArgs-1 middle args becomes
	// the final argument verbatim, trailing colon or not, matching RFC
	// 1459's "last parameter may contain spaces" rule once the arg count
	// ceiling is hit.
	if s != "" {
		if strings.HasPrefix(s, ":") {
			s = s[1:]
			m.HasTrailing = true
		}
		m.Args = append(m.Args, s)
	}

	return m, nil
}

// Encode renders m back into a CRLF-terminated wire line. The trailing
// argument, if present, is always prefixed with ':' whether or not it
// contains a space, which is always legal and avoids re-deriving whether
// it originally needed one.
func Encode(m *Message) string {
	var b strings.Builder
	if m.Prefix != "" {
		b.WriteByte(':')
		b.WriteString(m.Prefix)
		b.WriteByte(' ')
	}
	b.WriteString(m.Command)
	for i, a := range m.Args {
		b.WriteByte(' ')
		last := i == len(m.Args)-1
		if last && (m.HasTrailing || a == "" || strings.ContainsRune(a, ' ') || strings.HasPrefix(a, ":")) {
			b.WriteByte(':')
		}
		b.WriteString(a)
	}
	b.WriteString("\r\n")
	s := b.String()
	if len(s) > MaxLine {
		s = s[:MaxLine-2] + "\r\n"
	}
	return s
}
