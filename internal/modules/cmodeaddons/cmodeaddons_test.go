package cmodeaddons

import (
	"testing"

	"github.com/palisade-irc/palisaded/internal/mode"
	"github.com/palisade-irc/palisaded/internal/state"
)

func newLoadedEngine(t *testing.T) *mode.Engine {
	t.Helper()
	e := mode.NewEngine()
	mode.RegisterCore(e)
	m := New(e)
	if err := m.AsModule().Load(false, nil, nil, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return e
}

func TestOperOnlyJoinGate(t *testing.T) {
	e := newLoadedEngine(t)

	ch := &state.Channel{Name: "#staff", Modes: mode.ModeOperOnly}
	plain := &state.Client{Nick: "plain"}
	op := &state.Client{Nick: "op", Modes: state.UserModeOperator}

	if e.CheckJoin(plain, ch, "") {
		t.Fatalf("non-operator should be refused a +O channel")
	}
	if !e.CheckJoin(op, ch, "") {
		t.Fatalf("operator should be allowed into a +O channel")
	}
}

func TestOperOnlyIgnoredWithoutMode(t *testing.T) {
	e := newLoadedEngine(t)

	ch := &state.Channel{Name: "#general"}
	plain := &state.Client{Nick: "plain"}

	if !e.CheckJoin(plain, ch, "") {
		t.Fatalf("channel without +O should admit any client")
	}
}

func TestStripRemovesControlCodesWhenSet(t *testing.T) {
	ch := &state.Channel{Name: "#clean", Modes: mode.ModeStrip}
	in := "\x02bold\x02 and \x0304red\x03 text"

	out := Strip(ch, in)
	if out != "bold and red text" {
		t.Fatalf("Strip: got %q", out)
	}
}

func TestStripNoopWithoutMode(t *testing.T) {
	ch := &state.Channel{Name: "#raw"}
	in := "\x02bold\x02"

	if out := Strip(ch, in); out != in {
		t.Fatalf("Strip without +S should pass text through unchanged, got %q", out)
	}
}
