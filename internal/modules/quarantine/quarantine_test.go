package quarantine

import (
	"testing"

	"github.com/palisade-irc/palisaded/internal/config"
	"github.com/palisade-irc/palisaded/internal/mode"
	"github.com/palisade-irc/palisaded/internal/state"
)

func newLoadedModule(t *testing.T) *Module {
	t.Helper()
	e := mode.NewEngine()
	mode.RegisterCore(e)
	m := New(e)
	mod := m.AsModule()
	conf := []*config.Entry{
		{Name: "quarantine", Type: config.List, Children: []*config.Entry{
			{Name: "mask", Type: config.Data, Value: "*.badnet.example"},
			{Name: "reason", Type: config.Data, Value: "known abuse source"},
		}},
	}
	if err := mod.Load(false, nil, conf, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func TestCheckConnectMatchesMask(t *testing.T) {
	m := newLoadedModule(t)

	refuse, reason := m.CheckConnect("host.badnet.example", "1.2.3.4")
	if !refuse {
		t.Fatalf("expected host matching quarantine mask to be refused")
	}
	if reason != "known abuse source" {
		t.Fatalf("unexpected reason %q", reason)
	}

	if refuse, _ := m.CheckConnect("clean.example.com", "5.6.7.8"); refuse {
		t.Fatalf("non-matching host should not be refused")
	}
}

func TestNickGateRejectsQuarantinedHost(t *testing.T) {
	m := newLoadedModule(t)

	cl := &state.Client{Nick: "victim", Host: "host.badnet.example"}
	if m.Mode.CheckNickChange(cl, "newnick") {
		t.Fatalf("nick change from a quarantined host should be rejected")
	}

	clean := &state.Client{Nick: "ok", Host: "clean.example.com"}
	if !m.Mode.CheckNickChange(clean, "newnick") {
		t.Fatalf("nick change from a clean host should be allowed")
	}
}
