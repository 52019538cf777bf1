package line

import "testing"

func TestParseBasic(t *testing.T) {
	m, err := Parse("PRIVMSG #chan :hello there\r\n", 0)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if m.Command != "PRIVMSG" {
		t.Fatalf("command = %q", m.Command)
	}
	if len(m.Args) != 2 || m.Args[0] != "#chan" {
		t.Fatalf("args = %#v", m.Args)
	}
	trailing, ok := m.Trailing()
	if !ok || trailing != "hello there" {
		t.Fatalf("trailing = %q, %v", trailing, ok)
	}
}

func TestParsePrefixServer(t *testing.T) {
	m, err := Parse(":irc.example.net NOTICE * :server starting", 0)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if m.PrefixKind != OriginServer {
		t.Fatalf("expected server prefix")
	}
}

func TestParsePrefixClient(t *testing.T) {
	m, err := Parse(":nick!user@host PRIVMSG #chan :hi", 0)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if m.PrefixKind != OriginClient {
		t.Fatalf("expected client prefix")
	}
}

func TestParseNoArgs(t *testing.T) {
	m, err := Parse("PING", 0)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(m.Args) != 0 {
		t.Fatalf("args = %#v", m.Args)
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := Parse("   \r\n", 0); err != ErrEmpty {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
}

func TestParseArgCeiling(t *testing.T) {
	s := "CMD a b c d e f g h i j k l m n o p q r"
	m, err := Parse(s, 5)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(m.Args) != 5 {
		t.Fatalf("args = %#v, want 5", m.Args)
	}
	// Past the ceiling, the remainder is folded verbatim into the last arg.
	if m.Args[4] != "e f g h i j k l m n o p q r" {
		t.Fatalf("last arg = %q", m.Args[4])
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	m := &Message{Prefix: "nick!u@h", Command: "PRIVMSG", Args: []string{"#chan", "hello world"}, HasTrailing: true}
	encoded := Encode(m)
	want := ":nick!u@h PRIVMSG #chan :hello world\r\n"
	if encoded != want {
		t.Fatalf("encoded = %q, want %q", encoded, want)
	}

	back, err := Parse(encoded, 0)
	if err != nil {
		t.Fatalf("re-parse error: %v", err)
	}
	if back.Command != m.Command || back.Args[1] != "hello world" {
		t.Fatalf("round trip mismatch: %#v", back)
	}
}

func TestFramerOverrunDiscardsTail(t *testing.T) {
	f := NewFramer(16, 0)

	msgs, err := f.Feed([]byte("PING short\r\n"))
	if err != nil {
		t.Fatalf("feed error: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Command != "PING" {
		t.Fatalf("expected one PING, got %#v", msgs)
	}

	// This line overruns the 16-byte buffer before its newline arrives.
	msgs, err = f.Feed([]byte("PRIVMSG #chan :this line is much too long for the buffer"))
	if err != nil {
		t.Fatalf("feed error: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no complete messages mid-overrun, got %#v", msgs)
	}
	if !f.dirty {
		t.Fatalf("expected framer to be marked dirty after overrun")
	}

	// The eventual newline for the oversized line is discarded, not parsed.
	msgs, err = f.Feed([]byte(" tail of the long line\r\nPING next\r\n"))
	if err != nil {
		t.Fatalf("feed error: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Command != "PING" || msgs[0].Args[0] != "next" {
		t.Fatalf("expected only the PING after the discarded overrun line, got %#v", msgs)
	}
}

func TestFramerMultipleInOneFeed(t *testing.T) {
	f := NewFramer(512, 0)
	msgs, err := f.Feed([]byte("NICK a\r\nUSER a 0 * :A Name\r\n"))
	if err != nil {
		t.Fatalf("feed error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
}
