package services

import (
	"testing"

	"github.com/palisade-irc/palisaded/internal/conn"
	"github.com/palisade-irc/palisaded/internal/line"
	"github.com/palisade-irc/palisaded/internal/mode"
	"github.com/palisade-irc/palisaded/internal/router"
	"github.com/palisade-irc/palisaded/internal/state"
)

func newTestModule(t *testing.T) (*Module, *state.Graph) {
	t.Helper()
	g := state.NewGraph("test.server", "test server", nil)
	e := mode.NewEngine()
	mode.RegisterCore(e)
	r := router.New(g, func(owner interface{}) *conn.Conn { return nil }, nil, e)
	return New(g, e, r, nil), g
}

func newClient(g *state.Graph, nick string) (*conn.Conn, *state.Client) {
	cl := &state.Client{Nick: nick, User: "u", Host: "host.example", Server: g.Self}
	g.AddClient(cl)
	return &conn.Conn{Client: cl, State: conn.ConnectedClient}, cl
}

func TestNickservRegisterThenIdentify(t *testing.T) {
	m, g := newTestModule(t)
	c, cl := newClient(g, "alice")

	m.cmdNickserv(c, &line.Message{Args: []string{"REGISTER hunter2 alice@example.com"}})
	if _, ok := m.nicks[foldNick("alice")]; !ok {
		t.Fatalf("expected nick account to be registered")
	}
	if m.identifiedAs(cl) != "alice" {
		t.Fatalf("REGISTER should auto-identify the registering client")
	}

	// Re-registering an already registered nick is refused.
	delete(m.identified, cl)
	m.cmdNickserv(c, &line.Message{Args: []string{"REGISTER otherpass"}})
	if m.nicks[foldNick("alice")].password != "hunter2" {
		t.Fatalf("second REGISTER should not overwrite the existing account")
	}

	m.cmdNickserv(c, &line.Message{Args: []string{"IDENTIFY hunter2"}})
	if cl.Modes&state.UserModeRegistered == 0 {
		t.Fatalf("IDENTIFY with the correct password should set +r")
	}
}

func TestNickservIdentifyWrongPasswordFails(t *testing.T) {
	m, g := newTestModule(t)
	c, cl := newClient(g, "bob")

	m.cmdNickserv(c, &line.Message{Args: []string{"REGISTER correct"}})
	delete(m.identified, cl)
	cl.Modes = 0

	m.cmdNickserv(c, &line.Message{Args: []string{"IDENTIFY wrong"}})
	if cl.Modes&state.UserModeRegistered != 0 {
		t.Fatalf("IDENTIFY with the wrong password must not set +r")
	}
}

func TestNickservDropRemovesAccount(t *testing.T) {
	m, g := newTestModule(t)
	c, cl := newClient(g, "carol")

	m.cmdNickserv(c, &line.Message{Args: []string{"REGISTER pw"}})
	m.cmdNickserv(c, &line.Message{Args: []string{"DROP"}})

	if _, ok := m.nicks[foldNick("carol")]; ok {
		t.Fatalf("DROP should remove the registered account")
	}
	if cl.Modes&state.UserModeRegistered != 0 {
		t.Fatalf("DROP should clear +r")
	}
}

func TestChanservRegisterRequiresChanop(t *testing.T) {
	m, g := newTestModule(t)
	c, cl := newClient(g, "dan")
	ch, _ := g.GetOrCreateChannel("#test", 1000)

	g.Join(cl, ch, 0)
	m.cmdChanserv(c, &line.Message{Args: []string{"REGISTER #test"}})
	if _, ok := m.channels[foldNick("#test")]; ok {
		t.Fatalf("a non-op should not be able to register a channel")
	}

	g.Part(cl, ch)
	// The last member parting destroyed the channel; recreate it.
	ch, _ = g.GetOrCreateChannel("#test", 1000)
	g.Join(cl, ch, mode.MemberOp)
	m.cmdChanserv(c, &line.Message{Args: []string{"REGISTER #test"}})
	if _, ok := m.channels[foldNick("#test")]; !ok {
		t.Fatalf("a chanop should be able to register the channel")
	}
	if !m.IsFounder(cl, "#test") {
		t.Fatalf("registering client should become founder")
	}
}

func TestChanservSetSuccessor(t *testing.T) {
	m, g := newTestModule(t)
	c, cl := newClient(g, "eve")
	ch, _ := g.GetOrCreateChannel("#owned", 1000)
	g.Join(cl, ch, mode.MemberOp)
	m.cmdChanserv(c, &line.Message{Args: []string{"REGISTER #owned"}})

	m.cmdChanserv(c, &line.Message{Args: []string{"SET #owned SUCCESSOR frank"}})

	_, successor := newClient(g, "frank")
	if !m.IsFounder(successor, "#owned") {
		t.Fatalf("named successor should be treated as founder once identified")
	}
}
