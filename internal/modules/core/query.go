package core

import (
	"strings"

	"github.com/palisade-irc/palisaded/internal/dispatch"
	"github.com/palisade-irc/palisaded/internal/line"
	"github.com/palisade-irc/palisaded/internal/state"
)

func (m *Module) cmdWho(src dispatch.Source, msg *line.Message) int {
	c, cl := findSource(src)
	mask := "*"
	if len(msg.Args) > 0 {
		mask = msg.Args[0]
	}

	if ch, ok := m.Graph.FindChannel(mask); ok {
		for _, mem := range ch.Members {
			m.whoLine(c, cl, mem.Client, ch.Name)
		}
	} else {
		for _, other := range m.Graph.Clients() {
			if matchesMask(mask, other) || strings.EqualFold(mask, other.Nick) {
				m.whoLine(c, cl, other, "*")
			}
		}
	}
	c.Reply(RplEndOfWho, mask)
	return 0
}

func (m *Module) whoLine(c connReply, viewer *state.Client, target *state.Client, chanName string) {
	server := "*"
	if target.Server != nil {
		server = target.Server.Name
	}
	c.Reply(RplWhoReply, chanName, target.User, target.Host, server, target.Nick, target.Info)
}

// connReply is the minimal interface cmdWho etc. need from a *conn.Conn,
// kept narrow so query handlers don't import internal/conn just to call
// Reply.
type connReply interface {
	Reply(numeric int, args ...string)
}

func (m *Module) cmdWhois(src dispatch.Source, msg *line.Message) int {
	c, _ := findSource(src)
	target, ok := m.Graph.FindClient(msg.Args[0])
	if !ok {
		c.Reply(ErrNoSuchNick, msg.Args[0])
		c.Reply(RplEndOfWhois, msg.Args[0])
		return 0
	}
	c.Reply(RplWhoisUser, target.Nick, target.User, target.Host, target.Info)
	if target.Server != nil {
		c.Reply(RplWhoisServer, target.Nick, target.Server.Name, target.Server.Info)
	}
	if target.Modes&state.UserModeOperator != 0 {
		c.Reply(RplWhoisOperator, target.Nick)
	}
	var chans []string
	for _, mem := range target.Channels {
		name := mem.Channel.Name
		if p, ok := m.Mode.HighestPrefix(mem.Flags); ok {
			name = string(p) + name
		}
		chans = append(chans, name)
	}
	if len(chans) > 0 {
		c.Reply(RplWhoisChannels, target.Nick, strings.Join(chans, " "))
	}
	c.Reply(RplEndOfWhois, target.Nick)
	return 0
}

func (m *Module) cmdWhowas(src dispatch.Source, msg *line.Message) int {
	c, _ := findSource(src)
	_, hist := m.Graph.Chase(msg.Args[0])
	if hist == nil {
		c.Reply(ErrWasNoSuchNick, msg.Args[0])
		c.Reply(RplEndOfWhowas, msg.Args[0])
		return 0
	}
	c.Reply(RplWhowasUser, hist.Nick, hist.User, hist.Host, hist.Info)
	c.Reply(RplEndOfWhowas, msg.Args[0])
	return 0
}

func (m *Module) cmdAway(src dispatch.Source, msg *line.Message) int {
	_, cl := findSource(src)
	if len(msg.Args) == 0 || msg.Args[0] == "" {
		delete(m.away, cl)
		return 0
	}
	m.away[cl] = msg.Args[0]
	return 0
}

func (m *Module) cmdUserhost(src dispatch.Source, msg *line.Message) int {
	c, _ := findSource(src)
	var parts []string
	for _, nick := range msg.Args {
		cl, ok := m.Graph.FindClient(nick)
		if !ok {
			continue
		}
		oper := ""
		if cl.Modes&state.UserModeOperator != 0 {
			oper = "*"
		}
		away := "+"
		if _, isAway := m.away[cl]; isAway {
			away = "-"
		}
		parts = append(parts, cl.Nick+oper+"="+away+cl.Host)
	}
	c.Reply(RplUserhost, strings.Join(parts, " "))
	return 0
}
