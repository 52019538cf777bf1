package core

import (
	"strings"

	"github.com/palisade-irc/palisaded/internal/dispatch"
	"github.com/palisade-irc/palisaded/internal/line"
	"github.com/palisade-irc/palisaded/internal/mode"
	"github.com/palisade-irc/palisaded/internal/modules/cmodeaddons"
)

func (m *Module) cmdPrivmsg(src dispatch.Source, msg *line.Message) int {
	m.deliver(src, msg, "PRIVMSG")
	return 0
}

func (m *Module) cmdNotice(src dispatch.Source, msg *line.Message) int {
	m.deliver(src, msg, "NOTICE")
	return 0
}

func (m *Module) deliver(src dispatch.Source, msg *line.Message, command string) {
	c, cl := findSource(src)
	target, text := msg.Args[0], msg.Args[1]

	if strings.HasPrefix(target, "#") || strings.HasPrefix(target, "&") {
		ch, ok := m.Graph.FindChannel(target)
		if !ok {
			if command == "PRIVMSG" {
				c.Reply(ErrNoSuchChannel, target)
			}
			return
		}
		if !m.Mode.CheckSend(cl, ch, text) {
			if command == "PRIVMSG" {
				c.Reply(ErrCannotSendToChan, target)
			}
			return
		}
		text = cmodeaddons.Strip(ch, text)
		out := &line.Message{Command: command, Args: []string{target, text}, HasTrailing: true, Prefix: prefixOf(cl)}
		m.Router.ToChannelLocal(ch, c, out)
		return
	}

	if strings.HasPrefix(target, "@") {
		// @#channel: ops-only notice, spec-supplemented from
		// original_source's chanserv-style status-message convention.
		chanName := target[1:]
		ch, ok := m.Graph.FindChannel(chanName)
		if !ok {
			return
		}
		out := &line.Message{Command: command, Args: []string{target, text}, HasTrailing: true, Prefix: prefixOf(cl)}
		m.Router.ToChannelPrefixes(ch, c, string(mustPrefix(m.Mode, mode.MemberOp)), out)
		return
	}

	dest, ok := m.Graph.FindClient(target)
	if !ok {
		if command == "PRIVMSG" {
			c.Reply(ErrNoSuchNick, target)
		}
		return
	}
	if !m.Mode.CheckSendClient(cl, dest, text) || m.isSilenced(dest, cl) {
		return
	}
	out := &line.Message{Command: command, Args: []string{target, text}, HasTrailing: true, Prefix: prefixOf(cl)}
	m.Router.ToOne(dest, out)
}

func mustPrefix(e *mode.Engine, bit uint32) []byte {
	for _, p := range e.Prefixes() {
		if p.MemberBit == bit {
			return []byte{p.Prefix}
		}
	}
	return nil
}

func (m *Module) cmdSilence(src dispatch.Source, msg *line.Message) int {
	c, cl := findSource(src)
	if len(msg.Args) == 0 {
		for _, mask := range m.silenced[cl] {
			c.Reply(RplUserhost, mask)
		}
		return 0
	}
	mask := msg.Args[0]
	if strings.HasPrefix(mask, "-") {
		mask = mask[1:]
		list := m.silenced[cl]
		out := list[:0]
		for _, existing := range list {
			if existing != mask {
				out = append(out, existing)
			}
		}
		m.silenced[cl] = out
		return 0
	}
	mask = strings.TrimPrefix(mask, "+")
	m.silenced[cl] = append(m.silenced[cl], mask)
	return 0
}
