// Package state implements the in-memory state graph of spec §4.F:
// Client, Channel, Server, Membership, and Ban entities behind
// case-folded name indexes, plus the nick-history chase ring of §4.F's
// History.
//
// Grounded on the teacher's meshage peer bookkeeping
// (internal/meshage/node.go's name-keyed map of peers plus the
// client/server split in cmd/minimega/meshage.go) for the shape of
// "every live object indexed by a case-normalized key, with the self
// entity distinguished," generalized to clients/channels/servers and
// enriched with the casefold/extension-area requirements of spec §3 and
// §4.F.
package state

import (
	"strings"
	"sync"
	"time"

	"github.com/palisade-irc/palisaded/internal/modhost"
)

// CaseMap is the configured uppercase-fold table shared by nick and
// channel indexes (spec §4.F, "a configured character mapping"). The
// default implements RFC 1459 casemapping: letters plus {}|^ fold onto
// []\~.
type CaseMap func(s string) string

// RFC1459Fold is the default CaseMap.
func RFC1459Fold(s string) string {
	b := []byte(strings.ToLower(s))
	for i, c := range b {
		switch c {
		case '{':
			b[i] = '['
		case '}':
			b[i] = ']'
		case '|':
			b[i] = '\\'
		case '^':
			b[i] = '~'
		}
	}
	return string(b)
}

// Client.Modes bit assignments for the bare user modes spec §6 implies
// (+o operator, +i invisible, +w wallops, +s server-notices); the addon
// user modes (umode_admin, umode_helper, ...) use the bits from
// UserModeAdmin through UserModeServicesAdmin.
const (
	UserModeOperator uint64 = 1 << iota
	UserModeInvisible
	UserModeWallops
	UserModeServerNotices
	UserModeAdmin
	UserModeHelper
	UserModeRegistered
	UserModeRegisteredOnly
	UserModeServicesAdmin
)

// Client is a live user, local or remote.
type Client struct {
	Nick     string
	User     string
	Host     string
	Orighost string
	IP       string
	Info     string

	Signon time.Time
	TS     int64 // network-authoritative timestamp; 0 = no TS trust
	Last   time.Time

	Modes uint64

	Server *Server
	Conn   *Connection // unused placeholder, always nil; cmd/ircd maps entities to conn.Conn

	Channels []*Membership

	Ext *modhost.Extension
}

// Server is a node in the server tree; exactly one per Graph is the
// local distinguished self-server (Graph.Self).
type Server struct {
	Name  string
	Info  string
	Hops  int
	Conn  *Connection // unused placeholder, always nil; cmd/ircd maps entities to conn.Conn
	Caps  uint32       // capability flags, spec §4.J

	Parent   *Server
	Children []*Server
	Clients  []*Client // clients whose Server == this one

	Ext *modhost.Extension
}

// Ban is one channel ban entry, spec §3 "Ban entry".
type Ban struct {
	Nick, User, Host string
	Who              string
	When             time.Time
	Type             string
}

// Membership links a Client into a Channel with per-member flags and a
// cached ban-match count (spec §4.H, "Cache the total match count per
// membership").
type Membership struct {
	Client  *Client
	Channel *Channel
	Flags   uint32 // op/voice/... bits
	BanHits int
}

// Channel is a named, TS-stamped multi-user conversation.
type Channel struct {
	Name    string
	Created int64 // TS of creation

	Modes uint64
	Key   string
	Limit int
	Bans  []*Ban

	topic      string
	topicBy    string
	topicSetAt time.Time

	Members []*Membership

	Ext *modhost.Extension
}

// Topic returns the channel's current topic text, "" if none is set.
func (ch *Channel) Topic() string { return ch.topic }

// TopicSetBy returns the nick that last set the topic.
func (ch *Channel) TopicSetBy() string { return ch.topicBy }

// TopicSetAt returns when the topic was last changed.
func (ch *Channel) TopicSetAt() time.Time { return ch.topicSetAt }

// SetTopic records a new topic and who set it.
func (ch *Channel) SetTopic(text, by string) {
	ch.topic = text
	ch.topicBy = by
	ch.topicSetAt = time.Now()
}

// Connection is a socket-backed transport endpoint associated with a
// Client or Server, spec §3 "Connection".
type Connection struct {
	ID       uint64
	RemoteIP string
	Class    string

	Client *Server // unused placeholder kept nil; concrete binding lives in internal/peer and internal/dispatch's connection wrapper
}

// HistoryEntry records a recently vanished identity so commands can
// "chase" a client by its last known nick (spec §4.F).
type HistoryEntry struct {
	Nick, User, Host, Orighost, IP, Info string
	ServerName                           string
	Signoff                              time.Time
}

// Graph owns every live entity and its indexes. All mutation happens on
// the reactor goroutine, matching spec §5 ("there is no data-race
// surface inside the core"); Graph itself adds a mutex only to guard
// against accidental cross-goroutine reads from auxiliary tooling (e.g.
// an operator console), never as a concurrency primitive for the core
// loop.
type Graph struct {
	mu sync.RWMutex

	Fold CaseMap

	Self *Server

	clientsByNick  map[string]*Client
	channelsByName map[string]*Channel
	serversByName  map[string]*Server

	clientsGlobal []*Client

	history *historyRing

	ClientHeader  *modhost.ExtHeader
	ChannelHeader *modhost.ExtHeader
	ServerHeader  *modhost.ExtHeader
}

// NewGraph creates an empty graph with a distinguished self-server.
func NewGraph(selfName, selfInfo string, fold CaseMap) *Graph {
	if fold == nil {
		fold = RFC1459Fold
	}
	g := &Graph{
		Fold:           fold,
		clientsByNick:  map[string]*Client{},
		channelsByName: map[string]*Channel{},
		serversByName:  map[string]*Server{},
		history:        newHistoryRing(256),
		ClientHeader:   modhost.NewExtHeader("client"),
		ChannelHeader:  modhost.NewExtHeader("channel"),
		ServerHeader:   modhost.NewExtHeader("server"),
	}
	g.Self = &Server{Name: selfName, Info: selfInfo, Ext: g.ServerHeader.Alloc()}
	g.serversByName[fold(selfName)] = g.Self
	return g
}

// --- clients ---

func (g *Graph) AddClient(c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()

	c.Ext = g.ClientHeader.Alloc()
	g.clientsByNick[g.Fold(c.Nick)] = c
	g.clientsGlobal = append(g.clientsGlobal, c)
	if c.Server != nil {
		c.Server.Clients = append(c.Server.Clients, c)
	}
}

// RenameClient updates the nick index, preserving the invariant that
// every live Client appears in the index under its current nick (spec
// §3 invariants).
func (g *Graph) RenameClient(c *Client, newNick string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.clientsByNick, g.Fold(c.Nick))
	c.Nick = newNick
	g.clientsByNick[g.Fold(newNick)] = c
}

// RemoveClient detaches c from every index, its server's client list,
// and every channel it was a member of, recording a history entry so
// "chase" lookups can still find it by its last identity.
func (g *Graph) RemoveClient(c *Client, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.clientsByNick, g.Fold(c.Nick))
	g.clientsGlobal = removeClient(g.clientsGlobal, c)
	if c.Server != nil {
		c.Server.Clients = removeClient(c.Server.Clients, c)
	}
	for _, m := range append([]*Membership(nil), c.Channels...) {
		g.partLocked(m.Client, m.Channel)
	}

	g.history.push(HistoryEntry{
		Nick: c.Nick, User: c.User, Host: c.Host, Orighost: c.Orighost,
		IP: c.IP, Info: c.Info,
		ServerName: serverName(c.Server),
		Signoff:    time.Now(),
	})

	if c.Ext != nil {
		g.ClientHeader.Free(c.Ext)
	}
}

func serverName(s *Server) string {
	if s == nil {
		return ""
	}
	return s.Name
}

func removeClient(list []*Client, target *Client) []*Client {
	out := list[:0]
	for _, c := range list {
		if c != target {
			out = append(out, c)
		}
	}
	return out
}

// FindClient looks up a client by nick, case-folded.
func (g *Graph) FindClient(nick string) (*Client, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.clientsByNick[g.Fold(nick)]
	return c, ok
}

// Chase resolves nick to a live client, or else to its most recent
// history entry, matching spec §4.F's "chase to the renamed/quit client
// by its last known identity".
func (g *Graph) Chase(nick string) (*Client, *HistoryEntry) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if c, ok := g.clientsByNick[g.Fold(nick)]; ok {
		return c, nil
	}
	if h := g.history.find(g.Fold(nick), g.Fold); h != nil {
		return nil, h
	}
	return nil, nil
}

func (g *Graph) Clients() []*Client {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Client, len(g.clientsGlobal))
	copy(out, g.clientsGlobal)
	return out
}

// Channels returns every live channel, for burst/sync paths that need to
// walk the whole set (internal/peer's Burster.Channels).
func (g *Graph) Channels() []*Channel {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Channel, 0, len(g.channelsByName))
	for _, ch := range g.channelsByName {
		out = append(out, ch)
	}
	return out
}

// --- servers ---

func (g *Graph) AddServer(s *Server) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s.Ext = g.ServerHeader.Alloc()
	g.serversByName[g.Fold(s.Name)] = s
	if s.Parent != nil {
		s.Parent.Children = append(s.Parent.Children, s)
	}
}

func (g *Graph) FindServer(name string) (*Server, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.serversByName[g.Fold(name)]
	return s, ok
}

// RemoveServer detaches s and every descendant (a squit cascade), along
// with every client homed under any of them.
func (g *Graph) RemoveServer(s *Server) []*Client {
	g.mu.Lock()
	defer g.mu.Unlock()

	var quit []*Client
	var walk func(*Server)
	walk = func(n *Server) {
		for _, child := range n.Children {
			walk(child)
		}
		for _, c := range n.Clients {
			delete(g.clientsByNick, g.Fold(c.Nick))
			g.clientsGlobal = removeClient(g.clientsGlobal, c)
			quit = append(quit, c)
		}
		delete(g.serversByName, g.Fold(n.Name))
		if n.Ext != nil {
			g.ServerHeader.Free(n.Ext)
		}
	}
	walk(s)
	if s.Parent != nil {
		s.Parent.Children = removeServer(s.Parent.Children, s)
	}
	return quit
}

func removeServer(list []*Server, target *Server) []*Server {
	out := list[:0]
	for _, s := range list {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

// --- channels ---

func (g *Graph) FindChannel(name string) (*Channel, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ch, ok := g.channelsByName[g.Fold(name)]
	return ch, ok
}

// GetOrCreateChannel returns the existing channel or creates one stamped
// with the given creation TS.
func (g *Graph) GetOrCreateChannel(name string, created int64) (*Channel, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ch, ok := g.channelsByName[g.Fold(name)]; ok {
		return ch, false
	}
	ch := &Channel{Name: name, Created: created}
	ch.Ext = g.ChannelHeader.Alloc()
	g.channelsByName[g.Fold(name)] = ch
	return ch, true
}

// Join creates a membership, maintaining both sides of the invariant
// (spec §3: "every live membership appears in both its Client's channel
// list and its Channel's member list").
func (g *Graph) Join(c *Client, ch *Channel, flags uint32) *Membership {
	g.mu.Lock()
	defer g.mu.Unlock()
	m := &Membership{Client: c, Channel: ch, Flags: flags}
	c.Channels = append(c.Channels, m)
	ch.Members = append(ch.Members, m)
	return m
}

// Part removes the membership linking c and ch, and destroys ch once its
// last member leaves.
func (g *Graph) Part(c *Client, ch *Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.partLocked(c, ch)
}

func (g *Graph) partLocked(c *Client, ch *Channel) {
	c.Channels = removeMembership(c.Channels, ch, nil)
	ch.Members = removeMembership(ch.Members, nil, c)
	if len(ch.Members) == 0 {
		delete(g.channelsByName, g.Fold(ch.Name))
		if ch.Ext != nil {
			g.ChannelHeader.Free(ch.Ext)
		}
	}
}

func removeMembership(list []*Membership, byChannel *Channel, byClient *Client) []*Membership {
	out := list[:0]
	for _, m := range list {
		if byChannel != nil && m.Channel == byChannel {
			continue
		}
		if byClient != nil && m.Client == byClient {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Membership finds the link between c and ch, if any.
func (g *Graph) Membership(c *Client, ch *Channel) (*Membership, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, m := range c.Channels {
		if m.Channel == ch {
			return m, true
		}
	}
	return nil, false
}
