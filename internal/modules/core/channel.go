package core

import (
	"strings"
	"time"

	"github.com/palisade-irc/palisaded/internal/conn"
	"github.com/palisade-irc/palisaded/internal/dispatch"
	"github.com/palisade-irc/palisaded/internal/line"
	"github.com/palisade-irc/palisaded/internal/mode"
	"github.com/palisade-irc/palisaded/internal/state"
)

func (m *Module) cmdJoin(src dispatch.Source, msg *line.Message) int {
	c, cl := findSource(src)
	if cl == nil {
		return 0
	}
	for i, name := range strings.Split(msg.Args[0], ",") {
		key := ""
		if len(msg.Args) > 1 {
			keys := strings.Split(msg.Args[1], ",")
			if i < len(keys) {
				key = keys[i]
			}
		}
		m.joinOne(c, cl, name, key)
	}
	return 0
}

func (m *Module) joinOne(c *conn.Conn, cl *state.Client, name, key string) {
	if !strings.HasPrefix(name, "#") && !strings.HasPrefix(name, "&") {
		c.Reply(ErrNoSuchChannel, name)
		return
	}
	ch, created := m.Graph.GetOrCreateChannel(name, m.now())
	bypassedBan := false
	if !created {
		if _, already := m.Graph.Membership(cl, ch); already {
			return
		}
		if m.isInvited(ch, cl) {
			m.clearInvite(ch, cl)
			bypassedBan = true
		} else if !m.Mode.CheckJoin(cl, ch, key) {
			code := banOrKeyCode(ch, cl, key)
			c.Reply(code, ch.Name)
			return
		}
	}

	flags := uint32(0)
	if created {
		flags = mode.MemberOp
	}
	mem := m.Graph.Join(cl, ch, flags)
	if bypassedBan {
		mem.BanHits = 0
	} else {
		mode.RecountBanHits(ch, mem)
	}

	joinMsg := &line.Message{Command: "JOIN", Args: []string{ch.Name}, Prefix: prefixOf(cl)}
	m.Router.ToChannelLocal(ch, nil, joinMsg)

	if ch.Topic() != "" {
		c.Reply(RplTopic, ch.Name, ch.Topic())
	} else {
		c.Reply(RplNoTopic, ch.Name)
	}
	c.Reply(RplNameReply, "=", ch.Name, m.namesLine(ch))
	c.Reply(RplEndOfNames, ch.Name)
}

func banOrKeyCode(ch *state.Channel, cl *state.Client, key string) int {
	if ch.Modes&mode.ModeInviteOnly != 0 {
		return ErrInviteOnlyChan
	}
	if ch.Key != "" && ch.Key != key {
		return ErrBadChannelKey
	}
	if ch.Limit > 0 && len(ch.Members) >= ch.Limit {
		return ErrChannelIsFull
	}
	return ErrBannedFromChan
}

func (m *Module) namesLine(ch *state.Channel) string {
	var parts []string
	for _, mem := range ch.Members {
		nick := mem.Client.Nick
		if p, ok := m.Mode.HighestPrefix(mem.Flags); ok {
			nick = string(p) + nick
		}
		parts = append(parts, nick)
	}
	return strings.Join(parts, " ")
}

func (m *Module) cmdPart(src dispatch.Source, msg *line.Message) int {
	c, cl := findSource(src)
	if cl == nil {
		return 0
	}
	reason := ""
	if len(msg.Args) > 1 {
		reason = msg.Args[1]
	}
	for _, name := range strings.Split(msg.Args[0], ",") {
		ch, ok := m.Graph.FindChannel(name)
		if !ok {
			c.Reply(ErrNoSuchChannel, name)
			continue
		}
		if _, ok := m.Graph.Membership(cl, ch); !ok {
			c.Reply(ErrNotOnChannel, name)
			continue
		}
		args := []string{ch.Name}
		if reason != "" {
			args = append(args, reason)
		}
		partMsg := &line.Message{Command: "PART", Args: args, HasTrailing: reason != "", Prefix: prefixOf(cl)}
		m.Router.ToChannelLocal(ch, nil, partMsg)
		c.Send(partMsg)
		m.Graph.Part(cl, ch)
	}
	return 0
}

func (m *Module) cmdMode(src dispatch.Source, msg *line.Message) int {
	c, cl := findSource(src)
	target := msg.Args[0]

	if ch, ok := m.Graph.FindChannel(target); ok {
		if len(msg.Args) == 1 {
			c.Reply(RplChannelModeIs, ch.Name, m.queryModeString(ch), "")
			return 0
		}
		mem, isMember := m.Graph.Membership(cl, ch)
		if !isMember || mem.Flags&mode.MemberOp == 0 {
			c.Reply(ErrChanOPrivsNeeded, ch.Name)
			return 0
		}
		result := m.Mode.Apply(ch, cl, msg.Args[1], msg.Args[2:])
		if len(result.Changes) > 0 {
			condensed, args := result.Condensed()
			out := append([]string{ch.Name, condensed}, args...)
			m.Router.ToChannelLocal(ch, nil, &line.Message{Command: "MODE", Args: out, Prefix: prefixOf(cl)})
		}
		for _, u := range result.Unknown {
			c.Reply(ErrUnknownMode, string(u))
		}
		return 0
	}

	if cl != nil && strings.EqualFold(target, cl.Nick) {
		if len(msg.Args) == 1 {
			c.Reply(RplUserhost, userModeString(m.Mode, cl))
			return 0
		}
		applyUserModes(m.Mode, cl, msg.Args[1])
		return 0
	}

	c.Reply(ErrNoSuchChannel, target)
	return 0
}

func (m *Module) queryModeString(ch *state.Channel) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, letter := range []byte{'n', 'm', 's', 't', 'i'} {
		md, _ := m.Mode.ChannelMode(letter)
		if md == nil {
			continue
		}
		if len(md.Query(ch)) > 0 {
			b.WriteByte(letter)
		}
	}
	if ch.Key != "" {
		b.WriteByte('k')
	}
	if ch.Limit > 0 {
		b.WriteByte('l')
	}
	return b.String()
}

func userModeString(e *mode.Engine, cl *state.Client) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, letter := range []byte{'o', 'i', 'w', 's'} {
		um, ok := e.UserMode(letter)
		if ok && cl.Modes&um.Bit != 0 {
			b.WriteByte(letter)
		}
	}
	return b.String()
}

func applyUserModes(e *mode.Engine, cl *state.Client, letters string) {
	add := true
	for i := 0; i < len(letters); i++ {
		switch letters[i] {
		case '+':
			add = true
		case '-':
			add = false
		default:
			um, ok := e.UserMode(letters[i])
			if !ok {
				continue
			}
			if add && (um.OperOnly || um.Bit == state.UserModeOperator) && cl.Modes&state.UserModeOperator == 0 {
				continue
			}
			if add {
				cl.Modes |= um.Bit
			} else {
				cl.Modes &^= um.Bit
			}
		}
	}
}

func (m *Module) cmdTopic(src dispatch.Source, msg *line.Message) int {
	c, cl := findSource(src)
	ch, ok := m.Graph.FindChannel(msg.Args[0])
	if !ok {
		c.Reply(ErrNoSuchChannel, msg.Args[0])
		return 0
	}
	mem, isMember := m.Graph.Membership(cl, ch)
	if !isMember {
		c.Reply(ErrNotOnChannel, ch.Name)
		return 0
	}
	if len(msg.Args) == 1 {
		if ch.Topic() == "" {
			c.Reply(RplNoTopic, ch.Name)
		} else {
			c.Reply(RplTopic, ch.Name, ch.Topic())
		}
		return 0
	}
	if ch.Modes&mode.ModeTopicLock != 0 && mem.Flags&mode.MemberOp == 0 {
		c.Reply(ErrChanOPrivsNeeded, ch.Name)
		return 0
	}
	ch.SetTopic(msg.Args[1], cl.Nick)
	topicMsg := &line.Message{Command: "TOPIC", Args: []string{ch.Name, msg.Args[1]}, HasTrailing: true, Prefix: prefixOf(cl)}
	m.Router.ToChannelLocal(ch, nil, topicMsg)
	return 0
}

func (m *Module) cmdKick(src dispatch.Source, msg *line.Message) int {
	c, cl := findSource(src)
	ch, ok := m.Graph.FindChannel(msg.Args[0])
	if !ok {
		c.Reply(ErrNoSuchChannel, msg.Args[0])
		return 0
	}
	mem, isMember := m.Graph.Membership(cl, ch)
	if !isMember || mem.Flags&mode.MemberOp == 0 {
		c.Reply(ErrChanOPrivsNeeded, ch.Name)
		return 0
	}
	target, ok := m.Graph.FindClient(msg.Args[1])
	if !ok {
		c.Reply(ErrNoSuchNick, msg.Args[1])
		return 0
	}
	if _, ok := m.Graph.Membership(target, ch); !ok {
		c.Reply(ErrUserOnChannel, msg.Args[1], ch.Name)
		return 0
	}
	reason := cl.Nick
	if len(msg.Args) > 2 {
		reason = msg.Args[2]
	}
	kickMsg := &line.Message{Command: "KICK", Args: []string{ch.Name, target.Nick, reason}, HasTrailing: true, Prefix: prefixOf(cl)}
	m.Router.ToChannelLocal(ch, nil, kickMsg)
	m.Router.ToOne(target, kickMsg)
	m.Graph.Part(target, ch)
	return 0
}

func (m *Module) cmdInvite(src dispatch.Source, msg *line.Message) int {
	c, cl := findSource(src)
	target, ok := m.Graph.FindClient(msg.Args[0])
	if !ok {
		c.Reply(ErrNoSuchNick, msg.Args[0])
		return 0
	}
	ch, ok := m.Graph.FindChannel(msg.Args[1])
	if !ok {
		m.recordInvite(msg.Args[1], target)
		c.Reply(RplInviting, target.Nick, msg.Args[1])
		return 0
	}
	mem, isMember := m.Graph.Membership(cl, ch)
	if ch.Modes&mode.ModeInviteOnly != 0 && (!isMember || mem.Flags&mode.MemberOp == 0) {
		c.Reply(ErrChanOPrivsNeeded, ch.Name)
		return 0
	}
	m.invitedInto(ch, target)
	c.Reply(RplInviting, target.Nick, ch.Name)
	m.Router.ToOne(target, &line.Message{Command: "INVITE", Args: []string{target.Nick, ch.Name}, Prefix: prefixOf(cl)})
	return 0
}

func (m *Module) cmdList(src dispatch.Source, msg *line.Message) int {
	c, cl := findSource(src)
	c.Reply(RplListStart)
	for _, ch := range m.listChannels() {
		if ch.Modes&(mode.ModeSecret|mode.ModePrivate) != 0 && !m.Mode.CheckSeeChannel(cl, ch) {
			continue
		}
		if len(msg.Args) == 1 && !strings.EqualFold(msg.Args[0], ch.Name) {
			continue
		}
		c.Reply(RplList, ch.Name, itoaCore(len(ch.Members)), ch.Topic())
	}
	c.Reply(RplListEnd)
	return 0
}

func (m *Module) listChannels() []*state.Channel {
	seen := map[string]bool{}
	var out []*state.Channel
	for _, cl := range m.Graph.Clients() {
		for _, mem := range cl.Channels {
			if !seen[mem.Channel.Name] {
				seen[mem.Channel.Name] = true
				out = append(out, mem.Channel)
			}
		}
	}
	return out
}

// invite bookkeeping: a process-lifetime set keyed by channel name since a
// pending INVITE to a not-yet-created channel must survive until the
// invitee actually joins.
var invites = map[string]map[*state.Client]time.Time{}

func (m *Module) recordInvite(chanName string, cl *state.Client) {
	set, ok := invites[chanName]
	if !ok {
		set = map[*state.Client]time.Time{}
		invites[chanName] = set
	}
	set[cl] = time.Now()
}

func (m *Module) invitedInto(ch *state.Channel, cl *state.Client) {
	m.recordInvite(ch.Name, cl)
}

func (m *Module) isInvited(ch *state.Channel, cl *state.Client) bool {
	_, ok := invites[ch.Name][cl]
	return ok
}

func (m *Module) clearInvite(ch *state.Channel, cl *state.Client) {
	delete(invites[ch.Name], cl)
}
