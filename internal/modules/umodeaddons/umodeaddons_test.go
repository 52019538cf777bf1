package umodeaddons

import (
	"testing"

	"github.com/palisade-irc/palisaded/internal/config"
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

func TestRegisteredOnlyRejectsUnregisteredSender(t *testing.T) {
	e := newLoadedEngine(t)

	to := &state.Client{Nick: "picky", Modes: state.UserModeRegisteredOnly}
	from := &state.Client{Nick: "stranger"}

	if e.CheckSendClient(from, to, "hi") {
		t.Fatalf("unregistered sender should be rejected by +R target")
	}

	from.Modes |= state.UserModeRegistered
	if !e.CheckSendClient(from, to, "hi") {
		t.Fatalf("registered sender should be allowed through +R")
	}
}

func TestRegisteredOnlyIgnoredWithoutFlag(t *testing.T) {
	e := newLoadedEngine(t)

	to := &state.Client{Nick: "open"}
	from := &state.Client{Nick: "stranger"}

	if !e.CheckSendClient(from, to, "hi") {
		t.Fatalf("target without +R should accept any sender")
	}
}

func TestAddonUserModesRegistered(t *testing.T) {
	e := newLoadedEngine(t)

	for _, letter := range []byte{'a', 'h', 'r', 'R', 'S'} {
		if _, ok := e.UserMode(letter); !ok {
			t.Fatalf("expected user mode %q to be registered", letter)
		}
	}
}
