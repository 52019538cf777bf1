package peer

import (
	"github.com/palisade-irc/palisaded/internal/line"
	"github.com/palisade-irc/palisaded/internal/mode"
	"github.com/palisade-irc/palisaded/internal/state"
)

// Burster renders the state graph into outbound lines for a freshly
// linked peer (spec §4.J's Burst): servers, clients, channel members and
// channel bans. User modes, channel modes, keys, limits, topics and away
// messages are not sent.
type Burster struct {
	Graph   *state.Graph
	Dialect *Dialect
	Caps    Cap
}

// Servers emits one SERVER line per non-self server in the graph.
func (b *Burster) Servers(self *state.Server, emit func(*line.Message)) {
	var walk func(*state.Server)
	walk = func(s *state.Server) {
		for _, child := range s.Children {
			emit(&line.Message{
				Command: "SERVER",
				Args:    []string{child.Name, itoa(child.Hops), child.Info},
			})
			walk(child)
		}
	}
	walk(self)
}

// Clients emits one NICK line per live client: nick, hop count, TS,
// user, host, server, IP and info, in that layout for every dialect; only
// the IP is encoded by the dialect. No MODE line for user modes is sent.
func (b *Burster) Clients(emit func(*line.Message)) {
	for _, c := range b.Graph.Clients() {
		ip := c.IP
		if b.Dialect != nil && b.Dialect.EncodeNickIP != nil {
			ip = b.Dialect.EncodeNickIP(c.IP)
		}
		args := []string{c.Nick, "1", itoa64(c.TS), c.User, c.Host, serverNameOf(c.Server), ip, c.Info}
		emit(&line.Message{Command: "NICK", Args: args, HasTrailing: true})
	}
}

// Channels emits, for every channel, an SJOIN line with prefixed members
// (if the peer supports CapSJOIN) or else one plain JOIN per member with
// no member prefixes, followed by one MODE +b line per ban. Channel
// modes and topics are not sent.
func (b *Burster) Channels(channels []*state.Channel, engine *mode.Engine, emit func(*line.Message)) {
	for _, ch := range channels {
		if Has(b.Caps, CapSJOIN) {
			emit(sjoinLine(ch, engine))
		} else {
			for _, m := range ch.Members {
				emit(&line.Message{Command: "JOIN", Args: []string{ch.Name}, Prefix: m.Client.Nick})
			}
		}
		for _, bn := range ch.Bans {
			emit(&line.Message{Command: "MODE", Args: []string{ch.Name, "+b", bn.Nick + "!" + bn.User + "@" + bn.Host}})
		}
	}
}

func sjoinLine(ch *state.Channel, engine *mode.Engine) *line.Message {
	members := make([]string, 0, len(ch.Members))
	for _, m := range ch.Members {
		prefix := ""
		if engine != nil {
			if p, ok := engine.HighestPrefix(m.Flags); ok {
				prefix = string(p)
			}
		}
		members = append(members, prefix+m.Client.Nick)
	}
	return &line.Message{
		Command:     "SJOIN",
		Args:        append([]string{itoa64(ch.Created), ch.Name}, members...),
		HasTrailing: true,
	}
}

func serverNameOf(s *state.Server) string {
	if s == nil {
		return ""
	}
	return s.Name
}

func itoa(n int) string   { return itoa64(int64(n)) }
func itoa64(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}
