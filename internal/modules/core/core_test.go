package core

import (
	"testing"

	"github.com/palisade-irc/palisaded/internal/conn"
	"github.com/palisade-irc/palisaded/internal/line"
	"github.com/palisade-irc/palisaded/internal/mode"
	"github.com/palisade-irc/palisaded/internal/modhost"
	"github.com/palisade-irc/palisaded/internal/router"
	"github.com/palisade-irc/palisaded/internal/state"
)

func newTestModule(t *testing.T) (*Module, *state.Graph, *mode.Engine) {
	t.Helper()
	g := state.NewGraph("test.server", "test server", nil)
	e := mode.NewEngine()
	mode.RegisterCore(e)
	r := router.New(g, func(owner interface{}) *conn.Conn { return nil }, nil, e)
	h := modhost.NewHost(nil)
	m := New(g, e, r, h, "test.server", "test server")
	return m, g, e
}

func newClient(g *state.Graph, nick string) (*conn.Conn, *state.Client) {
	cl := &state.Client{Nick: nick, User: "u", Host: "host.example", Server: g.Self}
	g.AddClient(cl)
	c := &conn.Conn{Client: cl, State: conn.ConnectedClient}
	return c, cl
}

// S4: an accepted invite bypasses +b/+i/+k/+l.
func TestInviteBypassesBan(t *testing.T) {
	m, g, e := newTestModule(t)
	_ = e

	opC, op := newClient(g, "op")
	victimC, victim := newClient(g, "victim")

	ch, _ := g.GetOrCreateChannel("#test", 1000)
	g.Join(op, ch, mode.MemberOp)
	ch.Modes |= mode.ModeInviteOnly
	mode.AddBan(ch, "victim!*@*", "op", "ban")
	mode.RecountAllMembers(ch)

	m.cmdInvite(opC, &line.Message{Args: []string{"victim", "#test"}})

	m.joinOne(victimC, victim, "#test", "")

	mem, ok := g.Membership(victim, ch)
	if !ok {
		t.Fatalf("invited+banned client should still be able to join")
	}
	if mem.BanHits != 0 {
		t.Fatalf("invite bypass should force BanHits to 0, got %d", mem.BanHits)
	}
}

// S1: a banned member's PRIVMSG to the channel is refused.
func TestBannedMemberCannotSend(t *testing.T) {
	m, g, _ := newTestModule(t)
	opC, op := newClient(g, "op")
	_, victim := newClient(g, "victim")

	ch, _ := g.GetOrCreateChannel("#t", 1000)
	g.Join(op, ch, mode.MemberOp)
	victimMem := g.Join(victim, ch, 0)

	m.cmdMode(opC, &line.Message{Args: []string{"#t", "+b", "victim!*@*"}})
	mode.RecountAllMembers(ch)
	if victimMem.BanHits == 0 {
		t.Fatalf("expected victim's BanHits to be nonzero after ban+recount")
	}

	if m.Mode.CheckSend(victim, ch, "hi") {
		t.Fatalf("banned member should not be allowed to send to the channel")
	}
	if !m.Mode.CheckSend(op, ch, "hi") {
		t.Fatalf("unbanned member should still be allowed to send")
	}
}

func TestModeRoundTripViaMODE(t *testing.T) {
	m, g, _ := newTestModule(t)
	opC, op := newClient(g, "op")
	ch, _ := g.GetOrCreateChannel("#rt", 1000)
	g.Join(op, ch, mode.MemberOp)

	m.cmdMode(opC, &line.Message{Args: []string{"#rt", "+nt"}})
	if ch.Modes&mode.ModeNoExternal == 0 || ch.Modes&mode.ModeTopicLock == 0 {
		t.Fatalf("expected +nt applied, got Modes=%b", ch.Modes)
	}

	m.cmdMode(opC, &line.Message{Args: []string{"#rt", "-n"}})
	if ch.Modes&mode.ModeNoExternal != 0 {
		t.Fatalf("expected -n applied")
	}
}

func TestPrivmsgToChannelRespectsModerated(t *testing.T) {
	m, g, _ := newTestModule(t)
	opC, op := newClient(g, "op")
	_, voice := newClient(g, "voiceless")

	ch, _ := g.GetOrCreateChannel("#m", 1000)
	g.Join(op, ch, mode.MemberOp)
	g.Join(voice, ch, 0)
	ch.Modes |= mode.ModeModerated

	voiceC := &conn.Conn{Client: voice, State: conn.ConnectedClient}
	m.cmdPrivmsg(voiceC, &line.Message{Args: []string{"#m", "hi"}})
	// No crash and no panic is the bar here; delivery suppression is
	// exercised through Mode.CheckSend directly in internal/mode's tests.
	_ = opC
}
