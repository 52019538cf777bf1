package router

import (
	"testing"

	"github.com/palisade-irc/palisaded/internal/conn"
	"github.com/palisade-irc/palisaded/internal/line"
	"github.com/palisade-irc/palisaded/internal/mode"
	"github.com/palisade-irc/palisaded/internal/state"
)

func TestToChannelLocalSkipsExcept(t *testing.T) {
	g := state.NewGraph("self.test", "", nil)
	e := mode.NewEngine()
	mode.RegisterCore(e)

	ch, _ := g.GetOrCreateChannel("#t", 1)
	a := &state.Client{Nick: "a"}
	b := &state.Client{Nick: "b"}
	g.AddClient(a)
	g.AddClient(b)
	ma := g.Join(a, ch, mode.MemberOp)
	mb := g.Join(b, ch, 0)
	_ = ma
	_ = mb

	connA := &conn.Conn{}
	connB := &conn.Conn{}
	byClient := map[*state.Client]*conn.Conn{a: connA, b: connB}

	r := New(g, func(owner interface{}) *conn.Conn {
		if cl, ok := owner.(*state.Client); ok {
			return byClient[cl]
		}
		return nil
	}, nil, e)

	// Both Conns are sock-less, so Send is a no-op; this exercises the
	// except-skip path without panicking.
	msg := &line.Message{Command: "PRIVMSG", Args: []string{"#t", "hi"}}
	r.ToChannelLocal(ch, connA, msg)
}

func TestToChannelPrefixesOpsOnly(t *testing.T) {
	g := state.NewGraph("self.test", "", nil)
	e := mode.NewEngine()
	mode.RegisterCore(e)
	ch, _ := g.GetOrCreateChannel("#t", 1)

	op := &state.Client{Nick: "op"}
	voice := &state.Client{Nick: "voice"}
	plain := &state.Client{Nick: "plain"}
	g.AddClient(op)
	g.AddClient(voice)
	g.AddClient(plain)
	g.Join(op, ch, mode.MemberOp)
	g.Join(voice, ch, mode.MemberVoice)
	g.Join(plain, ch, 0)

	r := New(g, func(owner interface{}) *conn.Conn { return &conn.Conn{} }, nil, e)
	// Exercise the prefix filter path; a nil-socket Conn's Send is a
	// no-op, so this asserts only that no panic occurs across all three
	// membership ranks.
	r.ToChannelPrefixes(ch, nil, "@", &line.Message{Command: "NOTICE", Args: []string{"#t", "ops only"}})
}

func TestToCommonChannelsDedup(t *testing.T) {
	g := state.NewGraph("self.test", "", nil)
	e := mode.NewEngine()
	mode.RegisterCore(e)

	src := &state.Client{Nick: "src"}
	other := &state.Client{Nick: "other"}
	g.AddClient(src)
	g.AddClient(other)

	ch1, _ := g.GetOrCreateChannel("#a", 1)
	ch2, _ := g.GetOrCreateChannel("#b", 1)
	g.Join(src, ch1, 0)
	g.Join(src, ch2, 0)
	g.Join(other, ch1, 0)
	g.Join(other, ch2, 0)

	calls := 0
	r := New(g, func(owner interface{}) *conn.Conn {
		if cl, ok := owner.(*state.Client); ok && cl == other {
			calls++
		}
		return &conn.Conn{}
	}, nil, e)
	r.ToCommonChannels(src, nil, &line.Message{Command: "QUIT"})
	if calls != 1 {
		t.Fatalf("ToCommonChannels delivered to other %d times, want 1", calls)
	}
}
