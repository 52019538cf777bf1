// Package quarantine rejects connections and nickname changes matching a
// configured host/IP mask, spec-supplemented from
// original_source/modules/ircd/addons/quarantine.c/.h's "refuse this
// class of connection outright before it ever reaches registration"
// behavior.
//
// The config block shape (quarantine { mask; class; reason; }) follows
// original_source/source/conf.c's nested-block grammar, read back
// through internal/config's Tree/Entry walk the same way conf_find
// walks a parsed block.
package quarantine

import (
	"github.com/palisade-irc/palisaded/internal/config"
	"github.com/palisade-irc/palisaded/internal/event"
	"github.com/palisade-irc/palisaded/internal/mode"
	"github.com/palisade-irc/palisaded/internal/modhost"
	"github.com/palisade-irc/palisaded/pkg/glob"
)

type rule struct {
	mask, class, reason string
}

// Module holds the live quarantine rule set, reloadable from config.
type Module struct {
	Mode  *mode.Engine
	rules []rule
}

func New(m *mode.Engine) *Module { return &Module{Mode: m} }

func (m *Module) AsModule() *modhost.Module {
	return &modhost.Module{
		Name:   "quarantine",
		Header: modhost.Header{Major: 1, Minor: 0, Patch: 0, Version: "quarantine"},
		Load: func(reload bool, saved modhost.SaveData, conf []*config.Entry, h *modhost.Host) error {
			m.loadRules(conf)
			m.Mode.CanNickClient.AddHook("quarantine.nick", m.nickGate)
			return nil
		},
		Unload: func(reload bool) modhost.SaveData {
			m.Mode.CanNickClient.RemoveHook("quarantine.nick")
			return nil
		},
	}
}

func (m *Module) loadRules(conf []*config.Entry) {
	m.rules = m.rules[:0]
	for _, e := range conf {
		if e.Name != "quarantine" {
			continue
		}
		var r rule
		for _, child := range e.Children {
			switch child.Name {
			case "mask":
				r.mask = child.Value
			case "class":
				r.class = child.Value
			case "reason":
				r.reason = child.Value
			}
		}
		if r.mask != "" {
			m.rules = append(m.rules, r)
		}
	}
}

// CheckConnect reports whether a newly accepted connection from host/ip
// should be refused, and the reason to send if so. Called by cmd/ircd
// right after accept, before registration proceeds.
func (m *Module) CheckConnect(host, ip string) (refuse bool, reason string) {
	for _, r := range m.rules {
		if glob.Match(r.mask, host) || glob.Match(r.mask, ip) {
			return true, r.reason
		}
	}
	return false, ""
}

func (m *Module) nickGate(data interface{}) interface{} {
	nc := data.(*mode.NickClientCheck)
	if nc.Client == nil {
		return event.Neutral
	}
	for _, r := range m.rules {
		if glob.Match(r.mask, nc.Client.Host) {
			return event.NeverOK
		}
	}
	return event.Neutral
}
