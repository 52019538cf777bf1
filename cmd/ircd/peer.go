package main

import (
	"net"
	"strconv"
	"time"

	"github.com/palisade-irc/palisaded/internal/config"
	"github.com/palisade-irc/palisaded/internal/conn"
	"github.com/palisade-irc/palisaded/internal/line"
	"github.com/palisade-irc/palisaded/internal/peer"
	"github.com/palisade-irc/palisaded/internal/reactor"
	"github.com/palisade-irc/palisaded/internal/state"
	log "github.com/palisade-irc/palisaded/pkg/ircdlog"
)

// linkConfig is one configured outbound server link, spec §4.C's `link
// { name; host; port; password; class; }` block.
type linkConfig struct {
	name, host, password string
	port                 int
}

// loadLinks reads every top-level link{} block from the live config.
func (d *daemon) loadLinks() []linkConfig {
	var out []linkConfig
	for _, e := range config.FindAll(d.conf.Root(), "link", config.List) {
		var lc linkConfig
		for _, child := range e.Children {
			switch child.Name {
			case "name":
				lc.name = child.Value
			case "host":
				lc.host = child.Value
			case "password":
				lc.password = child.Value
			case "port":
				if n, err := strconv.Atoi(child.Value); err == nil {
					lc.port = n
				}
			}
		}
		if lc.name != "" && lc.host != "" {
			if lc.port == 0 {
				lc.port = 7000
			}
			out = append(out, lc)
		}
	}
	return out
}

// connectPeers dials every configured outbound link once; a failed dial
// is logged and not retried, neither by a reconnect loop nor on SIGHUP
// (spec's Non-goals exclude link-state
// routing protocols; a static mesh of configured links is all §4.J
// requires).
func (d *daemon) connectPeers() {
	for _, lc := range d.loadLinks() {
		go d.connectPeer(lc)
	}
}

func (d *daemon) connectPeer(lc linkConfig) {
	addr := net.JoinHostPort(lc.host, strconv.Itoa(lc.port))
	nc, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		log.Warn("connecting to peer %s (%s): %v", lc.name, addr, err)
		return
	}

	sock := reactor.NewSocket(nc)
	c := conn.New(sock, 512)
	c.State = conn.Registering

	c.Send(&line.Message{Command: "PASS", Args: []string{lc.password, "TS"}})
	peer.Handshake(c, d.serverName, d.serverInfo, peer.Self)

	nc.SetReadDeadline(time.Now().Add(15 * time.Second))
	fr := line.NewFramer(line.MaxLine, 512)
	buf := make([]byte, 4096)

	var caps peer.Cap
	var farName, farInfo string
	dialect := peer.FallbackDialect()

	for farName == "" {
		n, err := nc.Read(buf)
		if err != nil {
			log.Warn("peer %s handshake failed: %v", lc.name, err)
			nc.Close()
			return
		}
		msgs, err := fr.Feed(buf[:n])
		if err != nil {
			nc.Close()
			return
		}
		for _, m := range msgs {
			switch m.Command {
			case "CAPAB":
				caps = peer.NegotiateInbound(c, m)
			case "SERVER":
				if len(m.Args) >= 3 {
					farName, farInfo = m.Args[0], m.Args[2]
				}
			}
		}
	}
	nc.SetReadDeadline(time.Time{})

	if dl, ok := peer.Dialects[lc.name]; ok {
		dialect = dl
	}

	srv := &state.Server{Name: farName, Info: farInfo, Hops: 1, Parent: d.graph.Self, Caps: uint32(caps)}
	d.graph.AddServer(srv)
	d.trackConn(srv, c)
	c.Server = srv
	c.State = conn.ConnectedPeer

	log.Info("linked to peer %s (%s), caps=%x", farName, addr, caps)

	burst := &peer.Burster{Graph: d.graph, Dialect: dialect, Caps: caps}
	emit := func(m *line.Message) { c.Send(m) }
	burst.Servers(d.graph.Self, emit)
	burst.Clients(emit)
	burst.Channels(d.graph.Channels(), d.modeEngine, emit)

	sock.OnReadable = func(s *reactor.Socket, data []byte) {
		msgs, err := c.Framer.Feed(data)
		if err != nil {
			d.reactor.MarkDead(s)
			return
		}
		for _, m := range msgs {
			d.dispatchPeerLine(c, srv, m)
		}
	}
	sock.OnClose = func(s *reactor.Socket, err error) {
		d.untrackConn(srv)
		quit := d.graph.RemoveServer(srv)
		for _, cl := range quit {
			d.coreMod.Router.ToCommonChannels(cl, nil, &line.Message{Command: "QUIT", Args: []string{"*.net *.split"}, HasTrailing: true, Prefix: cl.Nick})
		}
	}
	d.reactor.Register(sock)
}

// dispatchPeerLine handles the small subset of S2S traffic this daemon
// actively interprets rather than only relaying: NICK introduction (with
// collision resolution), SQUIT, and QUIT. Everything else is fanned out
// to local clients/peers unmodified via the router; this default
// "pass it on" behavior is spec-derived from §4.J's forwarding rule (no
// server-core relay source file survived the retrieval pack).
func (d *daemon) dispatchPeerLine(c *conn.Conn, srv *state.Server, m *line.Message) {
	switch m.Command {
	case "NICK":
		d.handlePeerNick(c, srv, m)
	case "SQUIT":
		quit := d.graph.RemoveServer(srv)
		for _, cl := range quit {
			d.coreMod.Router.ToCommonChannels(cl, nil, &line.Message{Command: "QUIT", Args: []string{"*.net *.split"}, HasTrailing: true, Prefix: cl.Nick})
		}
	case "QUIT":
		if cl, ok := d.graph.FindClient(m.Prefix); ok {
			reason := "Remote Quit"
			if len(m.Args) > 0 {
				reason = m.Args[0]
			}
			d.coreMod.Router.ToCommonChannels(cl, nil, &line.Message{Command: "QUIT", Args: []string{reason}, HasTrailing: true, Prefix: m.Prefix})
			d.graph.RemoveClient(cl, reason)
		}
	default:
		d.coreMod.Router.ToServButOne(srv, d.peerServers(), m)
		if ch, ok := d.graph.FindChannel(channelTargetOf(m)); ok {
			d.coreMod.Router.ToChannelLocal(ch, nil, m)
		}
	}
}

// peerServers returns every adjacent server, for S2S fan-out primitives
// that take an explicit recipient list (spec §4.J, "servers" argument).
func (d *daemon) peerServers() []*state.Server {
	return d.graph.Self.Children
}

// handlePeerNick introduces a remote client, resolving any nick
// collision per spec §4.J's table before accepting it into the graph.
func (d *daemon) handlePeerNick(c *conn.Conn, srv *state.Server, m *line.Message) {
	if len(m.Args) < 8 {
		return
	}
	nick := m.Args[0]
	ts, _ := strconv.ParseInt(m.Args[2], 10, 64)
	user, host, ip := m.Args[3], m.Args[4], m.Args[6]
	info := m.Args[len(m.Args)-1]

	existing, ok := d.graph.FindClient(nick)
	if !ok {
		cl := &state.Client{Nick: nick, User: user, Host: host, Orighost: host, IP: ip, Info: info, TS: ts, Server: srv, Signon: time.Now()}
		d.graph.AddClient(cl)
		return
	}

	// existing only ever comes from the graph, and a client is added to
	// the graph (state.Graph.AddClient) exactly when its registration
	// completes, so kRegistered is unconditionally true here.
	action := peer.ResolveNickCollision(true, existing.Server == d.graph.Self, existing.TS, ts)
	switch action {
	case peer.DropIncoming:
		// incoming is stale; nothing to do locally.
	case peer.DropExisting, peer.ReplaceUnregistered:
		d.graph.RemoveClient(existing, "Nick collision")
		cl := &state.Client{Nick: nick, User: user, Host: host, Orighost: host, IP: ip, Info: info, TS: ts, Server: srv, Signon: time.Now()}
		d.graph.AddClient(cl)
	case peer.CollideBoth:
		d.graph.RemoveClient(existing, "Nick collision")
	}
}

func channelTargetOf(m *line.Message) string {
	if len(m.Args) == 0 {
		return ""
	}
	return m.Args[0]
}
