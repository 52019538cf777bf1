package mode

import (
	"testing"

	"github.com/palisade-irc/palisaded/internal/event"
	"github.com/palisade-irc/palisaded/internal/state"
)

func newTestChannel(t *testing.T) (*Engine, *state.Graph, *state.Channel) {
	t.Helper()
	e := NewEngine()
	RegisterCore(e)
	g := state.NewGraph("self.test", "test server", nil)
	ch, _ := g.GetOrCreateChannel("#t", 1000)
	return e, g, ch
}

func joinClient(g *state.Graph, ch *state.Channel, nick, user, host string, flags uint32) *state.Membership {
	c := &state.Client{Nick: nick, User: user, Host: host, Orighost: host}
	g.AddClient(c)
	return g.Join(c, ch, flags)
}

// S1: ban takes effect only after membership recount.
func TestBanTakesEffectAfterRecount(t *testing.T) {
	e, g, ch := newTestChannel(t)
	a := joinClient(g, ch, "A", "u", "h1", MemberOp)
	b := joinClient(g, ch, "B", "u", "h2", 0)

	res := e.Apply(ch, a.Client, "+b", []string{"*!*@h2"})
	if len(res.Changes) != 1 {
		t.Fatalf("expected one change, got %d (%v)", len(res.Changes), res)
	}

	if b.BanHits != 1 {
		t.Fatalf("B.BanHits = %d, want 1", b.BanHits)
	}
	if a.BanHits != 0 {
		t.Fatalf("A.BanHits = %d, want 0", a.BanHits)
	}

	if !e.CheckSend(a.Client, ch, "hi") {
		t.Fatalf("A should still be able to send")
	}
}

// S5: event conditional short-circuit.
func TestConditionalShortCircuit(t *testing.T) {
	ev := event.New("t", event.FlagConditional)
	h3called := false
	ev.AddHook("h1", func(interface{}) interface{} { return event.OK })
	ev.AddHook("h2", func(interface{}) interface{} { return event.NeverOK })
	ev.AddHook("h3", func(interface{}) interface{} { h3called = true; return event.AlwaysOK })

	v := ev.FireConditional(nil)
	if v.Pass {
		t.Fatalf("expected FAIL verdict")
	}
	if h3called {
		t.Fatalf("h3 should not have been called")
	}
}

func TestModeRoundTrip(t *testing.T) {
	e, _, ch := newTestChannel(t)
	e.Apply(ch, nil, "+ntk", []string{"secret"})
	e.Apply(ch, nil, "+l", []string{"10"})

	for _, letter := range []byte{'n', 't', 'k', 'l'} {
		m, ok := e.ChannelMode(letter)
		if !ok {
			t.Fatalf("mode %c not registered", letter)
		}
		results := m.Query(ch)
		if len(results) == 0 {
			t.Fatalf("mode %c query returned nothing after set", letter)
		}
		for _, r := range results {
			_, _, err := m.Set(ch, nil, true, r.Arg)
			if err != nil {
				t.Fatalf("re-applying mode %c: %v", letter, err)
			}
		}
	}
	if ch.Key != "secret" || ch.Limit != 10 {
		t.Fatalf("round trip lost state: key=%q limit=%d", ch.Key, ch.Limit)
	}
}

func TestBanListBounded(t *testing.T) {
	_, _, ch := newTestChannel(t)
	for i := 0; i < MaxBansPerChannel; i++ {
		if !AddBan(ch, "*!*@h"+itoa(i), "op", "ban") {
			t.Fatalf("ban %d unexpectedly rejected", i)
		}
	}
	if AddBan(ch, "*!*@overflow", "op", "ban") {
		t.Fatalf("ban list should have rejected past MaxBansPerChannel")
	}
	if len(ch.Bans) != MaxBansPerChannel {
		t.Fatalf("len(ch.Bans) = %d, want %d", len(ch.Bans), MaxBansPerChannel)
	}
}

func TestHighestPrefix(t *testing.T) {
	e, _, _ := newTestChannel(t)
	p, ok := e.HighestPrefix(MemberOp | MemberVoice)
	if !ok || p != '@' {
		t.Fatalf("HighestPrefix(op|voice) = %q,%v, want '@',true", p, ok)
	}
	p, ok = e.HighestPrefix(MemberVoice)
	if !ok || p != '+' {
		t.Fatalf("HighestPrefix(voice) = %q,%v, want '+',true", p, ok)
	}
	_, ok = e.HighestPrefix(0)
	if ok {
		t.Fatalf("HighestPrefix(0) should report no prefix")
	}
}
