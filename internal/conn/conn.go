// Package conn provides the concrete Connection of spec §3: a socket
// handle, an associated Client or Server, and peer capability flags,
// implementing internal/dispatch.Source so the
// dispatcher can reply without depending on internal/reactor or
// internal/line directly.
//
// Grounded on the teacher's internal/meshage/client.go Node (one struct
// owning both the net.Conn and the higher-level peer identity) adapted
// to the line-oriented, possibly-operator-class connection spec §3
// describes.
package conn

import (
	"fmt"

	"github.com/palisade-irc/palisaded/internal/line"
	"github.com/palisade-irc/palisaded/internal/reactor"
	"github.com/palisade-irc/palisaded/internal/state"
)

// State is a Connection's position in the state machine of spec §4.J:
// ACCEPTED -> TLS_HANDSHAKING? -> REGISTERING -> REGISTERED ->
// CONNECTED(peer/client) -> CLOSING -> DEAD.
type State int

const (
	Accepted State = iota
	TLSHandshaking
	Registering
	Registered
	ConnectedClient
	ConnectedPeer
	Closing
	Dead
)

// Conn is one local connection: a local client, a local operator
// console, or a peer link. Exactly one of Client/Server is non-nil once
// registration completes.
type Conn struct {
	Sock  *reactor.Socket
	Framer *line.Framer

	State State
	Class string // resource-limit template, spec §3

	Client *state.Client
	Server *state.Server // non-nil for peer links

	// MaxArgs overrides line.MaxArgs for peer links carrying burst
	// messages past the ordinary 15-argument ceiling (spec §4.E).
	MaxArgs int

	// FloodAccum is the per-connection flood accumulator charged by
	// command weights (spec §5, "A per-connection flood accumulator,
	// seeded by command weights, throttles abusive clients").
	FloodAccum int

	// Peer-only: the negotiated capability flags, filled in by
	// internal/peer's NegotiateInbound during handshake.
	PeerCaps uint32

	// IdentUser is the RFC 1413 ident response collected before
	// registration, if any (internal/modules/ident). Empty when no
	// identd answered; cmdUser then falls back to the client-supplied
	// USER field per spec §3.
	IdentUser string
}

func New(sock *reactor.Socket, maxArgs int) *Conn {
	return &Conn{
		Sock:    sock,
		Framer:  line.NewFramer(line.MaxLine, maxArgs),
		MaxArgs: maxArgs,
		State:   Accepted,
	}
}

// IsOperator and IsRegistered implement dispatch.Source.
func (c *Conn) IsOperator() bool {
	return c.Client != nil && c.Client.Modes&state.UserModeOperator != 0
}

func (c *Conn) IsRegistered() bool {
	return c.State == ConnectedClient || c.State == ConnectedPeer
}

// Send encodes and writes one message, truncating per spec §4.I ("Long
// messages are truncated, never split"). There is no send queue: each
// line goes straight to the Socket's Write.
func (c *Conn) Send(m *line.Message) {
	if c.Sock == nil || c.Sock.Dead() {
		return
	}
	_, _ = c.Sock.Write([]byte(line.Encode(m)))
}

// Reply implements dispatch.Source by formatting a numeric through the
// caller-supplied format table; ReplyFormatter is wired by cmd/ircd at
// startup since dispatch.Dispatcher already owns the per-class tables.
var ReplyFormatter func(class string, code int) string

// Reply sends a "NNN nick <formatted args>" numeric line; no source prefix
// is attached. format is
// a printf-style pattern registered against the numeric (e.g. "%s
// :Nickname is already in use"); it is rendered with args and carried as
// one trailing argument, matching how a mixed positional/text numeric
// reply is conventionally framed on the wire.
func (c *Conn) Reply(numeric int, args ...string) {
	format := ""
	if ReplyFormatter != nil {
		format = ReplyFormatter(c.Class, numeric)
	}
	nick := "*"
	if c.Client != nil && c.Client.Nick != "" {
		nick = c.Client.Nick
	}

	if format == "" {
		m := &line.Message{Command: itoa3(numeric), Args: append([]string{nick}, args...)}
		c.Send(m)
		return
	}

	ifaceArgs := make([]interface{}, len(args))
	for i, a := range args {
		ifaceArgs[i] = a
	}
	rendered := fmt.Sprintf(format, ifaceArgs...)
	m := &line.Message{Command: itoa3(numeric), Args: []string{nick, rendered}, HasTrailing: true}
	c.Send(m)
}

func itoa3(n int) string {
	digits := [3]byte{}
	for i := 2; i >= 0; i-- {
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[:])
}
