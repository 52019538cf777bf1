// Package router implements the delivery primitives of spec §4.I: one
// client, one server, channel fan-out (plain, prefix-filtered, or
// common-channel dedup), peer fan-out (one, all-but-one, by capability
// flag), pattern broadcast, and operator-notice flag channels.
//
// Grounded on the teacher's internal/meshage send-to-mesh primitives
// (cmd/minimega/meshage.go's meshageSend iterating a recipient list and
// internal/meshage/route.go's flood/broadcast split) generalized from
// meshage's flat peer mesh to spec's richer client/channel/server
// destination set.
package router

import (
	"github.com/palisade-irc/palisaded/internal/conn"
	"github.com/palisade-irc/palisaded/internal/line"
	"github.com/palisade-irc/palisaded/internal/mode"
	"github.com/palisade-irc/palisaded/internal/state"
	"github.com/palisade-irc/palisaded/pkg/glob"
)

// ConnOf resolves the local Connection backing a Client or Server, or
// nil for a remote entity with no local socket. Wired by cmd/ircd since
// internal/state does not itself track which Conn owns which entity.
type ConnOf func(owner interface{}) *conn.Conn

// Flag channels (SFLAG) are named operator-notice destinations; the
// subscriber list for each flag comes only from this function, which
// internal/modules/core backs with its per-client flag-set for named
// SFLAGs like "SPY"/"GLOBOPS"/"HELPER". Client.Modes bits are not
// consulted.
type FlagSubscribers func(flag string) []*state.Client

// Router ties the delivery primitives to a live state.Graph and a way to
// find each entity's local Connection.
type Router struct {
	Graph   *state.Graph
	ConnOf  ConnOf
	Flagged FlagSubscribers
	Mode    *mode.Engine
}

func New(g *state.Graph, connOf ConnOf, flagged FlagSubscribers, modeEngine *mode.Engine) *Router {
	return &Router{Graph: g, ConnOf: connOf, Flagged: flagged, Mode: modeEngine}
}

func (r *Router) connFor(c *state.Client) *conn.Conn {
	if r.ConnOf == nil || c == nil {
		return nil
	}
	return r.ConnOf(c)
}

func (r *Router) connForServer(s *state.Server) *conn.Conn {
	if r.ConnOf == nil || s == nil {
		return nil
	}
	return r.ConnOf(s)
}

// send writes m to c's local connection, skipping except.
func (r *Router) send(c *conn.Conn, except *conn.Conn, m *line.Message) {
	if c == nil || c == except {
		return
	}
	c.Send(m)
}

// ToOne delivers m to one local client.
func (r *Router) ToOne(target *state.Client, m *line.Message) {
	r.send(r.connFor(target), nil, m)
}

// ToOneFrom prepends a source identity prefix and delivers to one local
// client.
func (r *Router) ToOneFrom(target *state.Client, sourcePrefix string, m *line.Message) {
	m2 := *m
	m2.Prefix = sourcePrefix
	r.ToOne(target, &m2)
}

// ToChannelLocal delivers m to every local member of ch, except the
// given connection (echo avoidance).
func (r *Router) ToChannelLocal(ch *state.Channel, except *conn.Conn, m *line.Message) {
	for _, mem := range ch.Members {
		r.send(r.connFor(mem.Client), except, m)
	}
}

// ToChannelPrefixes delivers only to members whose highest prefix is in
// prefixMask (e.g. "@" for ops only, "@+" for ops and voiced).
func (r *Router) ToChannelPrefixes(ch *state.Channel, except *conn.Conn, prefixMask string, m *line.Message) {
	for _, mem := range ch.Members {
		p, ok := r.Mode.HighestPrefix(mem.Flags)
		if !ok {
			continue
		}
		matched := false
		for i := 0; i < len(prefixMask); i++ {
			if prefixMask[i] == p {
				matched = true
				break
			}
		}
		if matched {
			r.send(r.connFor(mem.Client), except, m)
		}
	}
}

// ToCommonChannels notifies every local client sharing any channel with
// source exactly once, except the given connection.
func (r *Router) ToCommonChannels(source *state.Client, except *conn.Conn, m *line.Message) {
	seen := map[*state.Client]bool{}
	for _, mem := range source.Channels {
		for _, other := range mem.Channel.Members {
			if other.Client == source || seen[other.Client] {
				continue
			}
			seen[other.Client] = true
			r.send(r.connFor(other.Client), except, m)
		}
	}
}

// ToServ delivers m to one adjacent peer.
func (r *Router) ToServ(target *state.Server, m *line.Message) {
	r.send(r.connForServer(target), nil, m)
}

// ToServButOne fans m out to every adjacent peer except one.
func (r *Router) ToServButOne(except *state.Server, servers []*state.Server, m *line.Message) {
	var exceptConn *conn.Conn
	if except != nil {
		exceptConn = r.connForServer(except)
	}
	for _, s := range servers {
		if s == except {
			continue
		}
		r.send(r.connForServer(s), exceptConn, m)
	}
}

// ToServPflag fans m out to every peer whose capability flags & mask
// equal match (spec §4.J's named capability bits), used e.g. to reach
// only NOQUIT-capable peers.
func (r *Router) ToServPflag(servers []*state.Server, mask, match uint32, m *line.Message) {
	for _, s := range servers {
		if s.Caps&mask != match {
			continue
		}
		r.send(r.connForServer(s), nil, m)
	}
}

// ToMatch pattern-broadcasts to every local client whose host or server
// name matches pattern (spec §4.I's GNOTICE/GLOBOPS-style wide notices).
func (r *Router) ToMatch(pattern string, m *line.Message) {
	for _, c := range r.Graph.Clients() {
		if glob.Match(pattern, c.Host) || (c.Server != nil && glob.Match(pattern, c.Server.Name)) {
			r.send(r.connFor(c), nil, m)
		}
	}
}

// ToFlag delivers m to every local client subscribed to the named
// operator-notice flag channel (SFLAG("SPY")/SFLAG("GLOBOPS")/...).
func (r *Router) ToFlag(flag string, m *line.Message) {
	if r.Flagged == nil {
		return
	}
	for _, c := range r.Flagged(flag) {
		r.send(r.connFor(c), nil, m)
	}
}
