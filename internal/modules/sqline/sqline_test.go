package sqline

import (
	"testing"

	"github.com/palisade-irc/palisaded/internal/conn"
	"github.com/palisade-irc/palisaded/internal/line"
	"github.com/palisade-irc/palisaded/internal/mode"
	"github.com/palisade-irc/palisaded/internal/router"
	"github.com/palisade-irc/palisaded/internal/state"
)

func newTestModule(t *testing.T) (*Module, *state.Graph, *mode.Engine) {
	t.Helper()
	g := state.NewGraph("test.server", "test server", nil)
	e := mode.NewEngine()
	mode.RegisterCore(e)
	r := router.New(g, func(owner interface{}) *conn.Conn { return nil }, nil, e)
	m := New(g, e, r)
	if err := m.AsModule().Load(false, nil, nil, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m, g, e
}

func TestSqlineBansNickPattern(t *testing.T) {
	m, _, e := newTestModule(t)

	m.cmdSqline(nil, &line.Message{Args: []string{"bad*", "banned pattern"}})

	cl := &state.Client{Nick: "oldnick"}
	if e.CheckNickChange(cl, "badguy") {
		t.Fatalf("nick matching an SQLINE pattern should be rejected")
	}
	if !e.CheckNickChange(cl, "gooduser") {
		t.Fatalf("nick not matching any pattern should be allowed")
	}
}

func TestUnsqlineLiftsBan(t *testing.T) {
	m, _, e := newTestModule(t)

	m.cmdSqline(nil, &line.Message{Args: []string{"evil*", "reason"}})
	m.cmdUnsqline(nil, &line.Message{Args: []string{"evil*"}})

	cl := &state.Client{Nick: "x"}
	if !e.CheckNickChange(cl, "evildoer") {
		t.Fatalf("UNSQLINE should lift a previously set pattern")
	}
}

func TestSqlineBansChannelPattern(t *testing.T) {
	m, g, e := newTestModule(t)

	m.cmdSqline(nil, &line.Message{Args: []string{"#spam*", "no spam channels"}})

	ch, _ := g.GetOrCreateChannel("#spamalot", 1000)
	cl := &state.Client{Nick: "who"}
	if e.CheckJoin(cl, ch, "") {
		t.Fatalf("joining an SQLINEd channel pattern should be refused")
	}

	clean, _ := g.GetOrCreateChannel("#ok", 1000)
	if !e.CheckJoin(cl, clean, "") {
		t.Fatalf("a channel not matching any pattern should admit the client")
	}
}
