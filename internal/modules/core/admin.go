package core

import (
	"github.com/palisade-irc/palisaded/internal/dispatch"
	"github.com/palisade-irc/palisaded/internal/line"
)

// cmdSamode lets an operator force a channel mode change bypassing the
// ordinary op-privilege check, spec-supplemented from
// original_source/modules/ircd/commands/samode.c's "SAMODE is OPER's
// unconditional MODE".
func (m *Module) cmdSamode(src dispatch.Source, msg *line.Message) int {
	c, cl := findSource(src)
	ch, ok := m.Graph.FindChannel(msg.Args[0])
	if !ok {
		c.Reply(ErrNoSuchChannel, msg.Args[0])
		return 0
	}
	result := m.Mode.Apply(ch, cl, msg.Args[1], msg.Args[2:])
	if len(result.Changes) == 0 {
		return 0
	}
	condensed, args := result.Condensed()
	out := append([]string{ch.Name, condensed}, args...)
	m.Router.ToChannelLocal(ch, nil, &line.Message{Command: "MODE", Args: out, Prefix: prefixOf(cl)})
	m.notifyFlag("GLOBOPS", "%s used SAMODE %s %s", cl.Nick, ch.Name, msg.Args[1])
	return 0
}
