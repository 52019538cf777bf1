// Package services implements a minimal in-process NickServ/ChanServ:
// nickname and channel registration/ownership, backed by an in-memory
// store (spec-supplemented from original_source/modules/services/nick.c
// for the NickServ side; the original pack has no separate chanserv
// source file, so the ChanServ side is grounded on
// original_source/modules/services/services.c's generic
// service-registration front end instead. Both sit behind a full
// database in the original; this module keeps the registration/
// ownership semantics but defers persistence to whatever store
// internal/config's reload wires in later).
package services

import (
	"strings"
	"time"

	"github.com/palisade-irc/palisaded/internal/config"
	"github.com/palisade-irc/palisaded/internal/conn"
	"github.com/palisade-irc/palisaded/internal/dispatch"
	"github.com/palisade-irc/palisaded/internal/line"
	"github.com/palisade-irc/palisaded/internal/mode"
	"github.com/palisade-irc/palisaded/internal/modhost"
	"github.com/palisade-irc/palisaded/internal/router"
	"github.com/palisade-irc/palisaded/internal/state"
)

// MailSender abstracts the registration-confirmation email step so the
// module can be exercised without a real mail transport; cmd/ircd wires
// NoopMailSender, and no SMTP sender exists in this repository.
type MailSender interface {
	Send(to, subject, body string) error
}

// NoopMailSender discards mail, used when no mail transport is
// configured. Registration does not wait on mail either way: REGISTER
// activates the account at once.
type NoopMailSender struct{}

func (NoopMailSender) Send(to, subject, body string) error { return nil }

type nickAccount struct {
	nick, password, email string
	registered            time.Time
}

type chanAccount struct {
	founder string
	registered time.Time
	successor  string
}

// Module is the live registration store plus the engine references
// needed to gate channel ownership into the mode engine's access checks.
type Module struct {
	Graph  *state.Graph
	Mode   *mode.Engine
	Router *router.Router
	Mail   MailSender

	nicks    map[string]*nickAccount
	channels map[string]*chanAccount

	// identified tracks which live client has identified to which
	// registered nick account this session.
	identified map[*state.Client]string
}

func New(g *state.Graph, m *mode.Engine, r *router.Router, mail MailSender) *Module {
	if mail == nil {
		mail = NoopMailSender{}
	}
	return &Module{
		Graph:      g,
		Mode:       m,
		Router:     r,
		Mail:       mail,
		nicks:      map[string]*nickAccount{},
		channels:   map[string]*chanAccount{},
		identified: map[*state.Client]string{},
	}
}

func (m *Module) AsModule() *modhost.Module {
	return &modhost.Module{
		Name:   "services",
		Header: modhost.Header{Major: 1, Minor: 0, Patch: 0, Version: "services"},
		Load: func(reload bool, saved modhost.SaveData, conf []*config.Entry, h *modhost.Host) error {
			return nil
		},
	}
}

func (m *Module) Register(d *dispatch.Dispatcher) {
	d.Register(&dispatch.Command{Name: "NICKSERV", MinArgs: 1, MaxArgs: -1, Flags: dispatch.FlagRegistered | dispatch.FlagFoldExcess, Call: m.cmdNickserv})
	d.Register(&dispatch.Command{Name: "CHANSERV", MinArgs: 1, MaxArgs: -1, Flags: dispatch.FlagRegistered | dispatch.FlagFoldExcess, Call: m.cmdChanserv})
	d.Alias("NS", "NICKSERV")
	d.Alias("CS", "CHANSERV")
}

func (m *Module) cmdNickserv(src dispatch.Source, msg *line.Message) int {
	_, cl := findSource(src)
	if cl == nil {
		return 0
	}
	fields := strings.Fields(msg.Args[len(msg.Args)-1])
	if len(msg.Args) > 1 {
		fields = append([]string{msg.Args[0]}, fields...)
	}
	if len(fields) == 0 {
		return 0
	}
	switch strings.ToUpper(fields[0]) {
	case "REGISTER":
		if len(fields) < 2 {
			return 0
		}
		password := fields[1]
		email := ""
		if len(fields) > 2 {
			email = fields[2]
		}
		if _, exists := m.nicks[foldNick(cl.Nick)]; exists {
			return 0
		}
		m.nicks[foldNick(cl.Nick)] = &nickAccount{nick: cl.Nick, password: password, email: email, registered: time.Now()}
		m.identified[cl] = cl.Nick
		if email != "" {
			m.Mail.Send(email, "Nickname registered", "Your nickname "+cl.Nick+" is now registered.")
		}
	case "IDENTIFY":
		if len(fields) < 2 {
			return 0
		}
		acct, ok := m.nicks[foldNick(cl.Nick)]
		if ok && acct.password == fields[1] {
			m.identified[cl] = cl.Nick
			cl.Modes |= state.UserModeRegistered
		}
	case "DROP":
		if m.identified[cl] == cl.Nick {
			delete(m.nicks, foldNick(cl.Nick))
			delete(m.identified, cl)
			cl.Modes &^= state.UserModeRegistered
		}
	}
	return 0
}

func (m *Module) cmdChanserv(src dispatch.Source, msg *line.Message) int {
	_, cl := findSource(src)
	if cl == nil {
		return 0
	}
	fields := strings.Fields(msg.Args[len(msg.Args)-1])
	if len(msg.Args) > 1 {
		fields = append([]string{msg.Args[0]}, fields...)
	}
	if len(fields) < 2 {
		return 0
	}
	switch strings.ToUpper(fields[0]) {
	case "REGISTER":
		chanName := fields[1]
		ch, ok := m.Graph.FindChannel(chanName)
		if !ok {
			return 0
		}
		mem, isMember := m.Graph.Membership(cl, ch)
		if !isMember || mem.Flags&mode.MemberOp == 0 {
			return 0
		}
		if _, exists := m.channels[foldNick(chanName)]; exists {
			return 0
		}
		m.channels[foldNick(chanName)] = &chanAccount{founder: m.identifiedAs(cl), registered: time.Now()}
	case "SET":
		if len(fields) < 4 {
			return 0
		}
		acct, ok := m.channels[foldNick(fields[1])]
		if !ok || acct.founder != m.identifiedAs(cl) {
			return 0
		}
		if strings.EqualFold(fields[2], "SUCCESSOR") {
			acct.successor = fields[3]
		}
	}
	return 0
}

func (m *Module) identifiedAs(cl *state.Client) string {
	if nick, ok := m.identified[cl]; ok {
		return foldNick(nick)
	}
	return foldNick(cl.Nick)
}

// IsFounder reports whether cl is the registered founder (or successor)
// of chanName, consulted by cmd/ircd when wiring channel-op persistence
// across rejoins.
func (m *Module) IsFounder(cl *state.Client, chanName string) bool {
	acct, ok := m.channels[foldNick(chanName)]
	if !ok {
		return false
	}
	id := m.identifiedAs(cl)
	return id == acct.founder || (acct.successor != "" && id == foldNick(acct.successor))
}

func foldNick(s string) string { return strings.ToLower(s) }

// findSource resolves the *conn.Conn and *state.Client backing a
// dispatch.Source, mirroring internal/modules/core's own helper since
// every Source handed to a command handler in this repo is a *conn.Conn.
func findSource(src dispatch.Source) (*conn.Conn, *state.Client) {
	c, ok := src.(*conn.Conn)
	if !ok || c == nil {
		return nil, nil
	}
	return c, c.Client
}
