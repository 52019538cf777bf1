package peer

import (
	"testing"

	"github.com/palisade-irc/palisaded/internal/mode"
	"github.com/palisade-irc/palisaded/internal/state"
)

// S2: TS override strips local ops.
func TestResolveChannelTSOverrideStripsOps(t *testing.T) {
	g := state.NewGraph("self.test", "", nil)
	e := mode.NewEngine()
	mode.RegisterCore(e)

	ch, _ := g.GetOrCreateChannel("#t", 2000)
	a := &state.Client{Nick: "A"}
	b := &state.Client{Nick: "B"}
	g.AddClient(a)
	g.AddClient(b)
	ma := g.Join(a, ch, mode.MemberOp)

	action := ResolveChannelTS(ch, true, false, 1500)
	if action != TSResetLocal {
		t.Fatalf("action = %v, want TSResetLocal", action)
	}
	stripped := ApplyTSResult(ch, action, 1500)
	if ch.Created != 1500 {
		t.Fatalf("ch.Created = %d, want 1500", ch.Created)
	}
	if ma.Flags != 0 {
		t.Fatalf("A should have lost op")
	}
	if len(stripped) != 1 || stripped[0] != ma {
		t.Fatalf("expected A in stripped list, got %v", stripped)
	}

	mb := g.Join(b, ch, mode.MemberOp)
	if mb.Flags&mode.MemberOp == 0 {
		t.Fatalf("B should join as op per the incoming SJOIN")
	}
}

// S3: nick collision at equal TS collides both.
func TestResolveNickCollisionEqualTS(t *testing.T) {
	action := ResolveNickCollision(true, true, 1700, 1700)
	if action != CollideBoth {
		t.Fatalf("action = %v, want CollideBoth", action)
	}
}

func TestResolveNickCollisionTable(t *testing.T) {
	cases := []struct {
		name                        string
		kRegistered, kLocal         bool
		kTS, uTS                    int64
		want                        CollisionAction
	}{
		{"unregistered local loses outright", false, true, 100, 200, ReplaceUnregistered},
		{"zero kts collides", true, false, 0, 200, CollideBoth},
		{"zero uts collides", true, false, 100, 0, CollideBoth},
		{"equal collides", true, false, 100, 100, CollideBoth},
		{"older local wins, drop incoming", true, false, 100, 200, DropIncoming},
		{"newer local loses", true, false, 300, 200, DropExisting},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ResolveNickCollision(c.kRegistered, c.kLocal, c.kTS, c.uTS)
			if got != c.want {
				t.Fatalf("ResolveNickCollision(%v,%v,%d,%d) = %v, want %v",
					c.kRegistered, c.kLocal, c.kTS, c.uTS, got, c.want)
			}
		})
	}
}

func TestCapabRoundTrip(t *testing.T) {
	want := CapTS | CapSJOIN | CapNoQuit
	tokens := EncodeCapab(want)
	got := ParseCapab(tokens)
	if got != want {
		t.Fatalf("capab round trip = %v, want %v", got, want)
	}
}

func TestDialectIPCodec(t *testing.T) {
	d := Dialects["bahamut14"]
	encoded := d.EncodeNickIP("192.168.1.2")
	decoded := d.DecodeNickIP(encoded)
	if decoded != "192.168.1.2" {
		t.Fatalf("round trip IP = %q, want 192.168.1.2", decoded)
	}
}
