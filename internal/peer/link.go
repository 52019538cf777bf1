package peer

import (
	"fmt"

	"github.com/palisade-irc/palisaded/internal/conn"
	"github.com/palisade-irc/palisaded/internal/line"
)

// Handshake drives the outbound side of a peer link establishment: send
// our CAPAB banner, then SERVER, per spec §4.J ("On an outbound link an
// adapter sends a CAPAB-style banner so the far side learns our
// flags").
func Handshake(c *conn.Conn, selfName, selfInfo string, caps Cap) {
	c.Send(&line.Message{Command: "CAPAB", Args: EncodeCapab(caps)})
	c.Send(&line.Message{Command: "SERVER", Args: []string{selfName, "1", selfInfo}, HasTrailing: true})
}

// NegotiateInbound parses an inbound CAPAB banner and records the
// resulting capability mask on c. It does not choose a dialect; see
// FallbackDialect and SelectDialect.
func NegotiateInbound(c *conn.Conn, msg *line.Message) Cap {
	caps := ParseCapab(msg.Args)
	c.PeerCaps = uint32(caps)
	return caps
}

// FallbackDialect returns the Dialect to assume when a peer never sends
// CAPAB at all (pre-CAPAB legacy links); dreamforge is the oldest
// dialect in original_source/modules/ircd/protocols/, so a silent peer
// is treated as speaking it.
func FallbackDialect() *Dialect { return Dialects["dreamforge"] }

// ErrUnknownDialect is returned by SelectDialect for a name not in the
// Dialects table.
type ErrUnknownDialect struct{ Name string }

func (e ErrUnknownDialect) Error() string { return fmt.Sprintf("peer: unknown dialect %q", e.Name) }

// SelectDialect resolves a config-named dialect, used when a peer block
// pins a specific legacy adapter instead of auto-negotiating from CAPAB.
func SelectDialect(name string) (*Dialect, error) {
	d, ok := Dialects[name]
	if !ok {
		return nil, ErrUnknownDialect{Name: name}
	}
	return d, nil
}
