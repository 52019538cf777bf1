// Package sqline implements SQLINE/UNSQLINE: operator-set glob patterns
// that ban a nickname or channel name network-wide, propagated to every
// adjacent peer exactly like the teacher's akill/gline style bans.
//
// Grounded on original_source/modules/ircd/commands/sqline.c for the
// command shape; the "apply locally, then forward to every other peer"
// propagation pattern is spec-derived from §4.J's server-to-server
// fan-out rule (no akill-propagation source file survived the retrieval
// pack), expressed here as a loop over the self-server's adjacent peers
// calling internal/router.ToServ for each.
package sqline

import (
	"strings"
	"time"

	"github.com/palisade-irc/palisaded/internal/config"
	"github.com/palisade-irc/palisaded/internal/dispatch"
	"github.com/palisade-irc/palisaded/internal/event"
	"github.com/palisade-irc/palisaded/internal/line"
	"github.com/palisade-irc/palisaded/internal/mode"
	"github.com/palisade-irc/palisaded/internal/modhost"
	"github.com/palisade-irc/palisaded/internal/router"
	"github.com/palisade-irc/palisaded/internal/state"
	"github.com/palisade-irc/palisaded/pkg/glob"
)

type entry struct {
	pattern string
	reason  string
	set     time.Time
	by      string
}

// Module holds the live nick and channel pattern tables, shared across
// local enforcement and peer propagation.
type Module struct {
	Mode   *mode.Engine
	Router *router.Router
	Graph  *state.Graph

	nickLines []entry
	chanLines []entry
}

func New(g *state.Graph, m *mode.Engine, r *router.Router) *Module {
	return &Module{Graph: g, Mode: m, Router: r}
}

func (m *Module) AsModule() *modhost.Module {
	return &modhost.Module{
		Name:   "sqline",
		Header: modhost.Header{Major: 1, Minor: 0, Patch: 0, Version: "sqline"},
		Load: func(reload bool, saved modhost.SaveData, conf []*config.Entry, h *modhost.Host) error {
			m.Mode.CanNickClient.AddHook("sqline.nick", m.nickGate)
			m.Mode.CanJoinChannel.AddHook("sqline.chan", m.chanGate)
			return nil
		},
		Unload: func(reload bool) modhost.SaveData {
			m.Mode.CanNickClient.RemoveHook("sqline.nick")
			m.Mode.CanJoinChannel.RemoveHook("sqline.chan")
			return nil
		},
	}
}

func (m *Module) Register(d *dispatch.Dispatcher) {
	d.Register(&dispatch.Command{Name: "SQLINE", MinArgs: 2, MaxArgs: 2, Flags: dispatch.FlagRegistered | dispatch.FlagOperator, Call: m.cmdSqline})
	d.Register(&dispatch.Command{Name: "UNSQLINE", MinArgs: 1, MaxArgs: 1, Flags: dispatch.FlagRegistered | dispatch.FlagOperator, Call: m.cmdUnsqline})
}

func (m *Module) cmdSqline(src dispatch.Source, msg *line.Message) int {
	pattern, reason := msg.Args[0], msg.Args[1]
	e := entry{pattern: pattern, reason: reason, set: time.Now()}
	if strings.ContainsAny(pattern, "#&") {
		m.chanLines = append(m.chanLines, e)
	} else {
		m.nickLines = append(m.nickLines, e)
	}
	m.propagate("SQLINE", pattern, reason)
	return 0
}

func (m *Module) cmdUnsqline(src dispatch.Source, msg *line.Message) int {
	pattern := msg.Args[0]
	m.nickLines = removeEntry(m.nickLines, pattern)
	m.chanLines = removeEntry(m.chanLines, pattern)
	m.propagate("UNSQLINE", pattern, "")
	return 0
}

func removeEntry(list []entry, pattern string) []entry {
	out := list[:0]
	for _, e := range list {
		if e.pattern != pattern {
			out = append(out, e)
		}
	}
	return out
}

func (m *Module) propagate(command, pattern, reason string) {
	args := []string{pattern}
	if reason != "" {
		args = append(args, reason)
	}
	out := &line.Message{Command: command, Args: args, HasTrailing: reason != ""}
	for _, s := range m.Graph.Self.Children {
		m.Router.ToServ(s, out)
	}
}

// ApplyRemote installs an SQLINE/UNSQLINE received from a peer. Nothing
// in the daemon calls it: cmd/ircd's peer dispatch relays SQLINE lines
// without applying them.
func (m *Module) ApplyRemote(command string, msg *line.Message) {
	switch command {
	case "SQLINE":
		reason := ""
		if len(msg.Args) > 1 {
			reason = msg.Args[1]
		}
		m.cmdSqline(nil, &line.Message{Args: []string{msg.Args[0], reason}})
	case "UNSQLINE":
		m.cmdUnsqline(nil, &line.Message{Args: []string{msg.Args[0]}})
	}
}

func (m *Module) nickGate(data interface{}) interface{} {
	nc := data.(*mode.NickClientCheck)
	for _, e := range m.nickLines {
		if glob.Match(e.pattern, nc.NewNick) {
			return event.NeverOK
		}
	}
	return event.Neutral
}

func (m *Module) chanGate(data interface{}) interface{} {
	jc := data.(*mode.JoinCheck)
	for _, e := range m.chanLines {
		if glob.Match(e.pattern, jc.Channel.Name) {
			return event.NeverOK
		}
	}
	return event.Neutral
}
