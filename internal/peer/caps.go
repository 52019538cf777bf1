// Package peer implements the server-to-server replication layer of
// spec §4.J: per-peer capability flags, burst synchronization, the
// timestamp-based channel conflict resolver, and nickname collision
// resolution.
//
// Grounded on original_source/modules/ircd/protocols/{bahamut14,
// dreamforge,ithildin1,rfc1459}.c for dialect-specific burst/CAPAB
// handling and original_source/modules/ircd/commands/nick.c for nick
// collision. The "table-driven adapter, new dialects are new table
// entries" shape (Design Notes) is expressed as the Dialect struct in
// dialect.go.
package peer

// Cap is one negotiated peer capability bit, spec §4.J.
type Cap uint32

const (
	// CapTS: the peer trusts and sends channel/client timestamps.
	CapTS Cap = 1 << iota
	// CapTSMode: MODE carries a timestamp at a fixed position.
	CapTSMode
	// CapSJOIN: server-initiated joins use SJOIN with mode+member list.
	CapSJOIN
	// CapNoQuit: SQUIT implies quits of all downstream clients; no
	// per-user QUIT needed.
	CapNoQuit
	// CapAttr: cosmetic attribute format variant.
	CapAttr
	// CapShortAkill: AKILL uses the shortened wire format.
	CapShortAkill
	// CapServicesID: this peer is the authoritative services server
	// (SPEC_FULL supplement: servicesid.c). It is parsed from and
	// encoded into CAPAB only; no nick or registration check reads it.
	CapServicesID
)

// Self exposes every capability except CapServicesID (the local server
// does not claim to be the services server): the local distinguished server always
// speaks the fullest dialect, per spec §4.J ("A 'self' peer exposes all
// capabilities").
const Self = CapTS | CapTSMode | CapSJOIN | CapNoQuit | CapAttr | CapShortAkill

// Has reports whether mask contains every bit in want.
func Has(mask, want Cap) bool { return mask&want == want }

// ParseCapab decodes a CAPAB-style banner line's space-separated token
// list into a Cap mask, unknown tokens ignored so forward-compatible
// peers don't fail the link.
func ParseCapab(tokens []string) Cap {
	var c Cap
	for _, t := range tokens {
		switch t {
		case "TS":
			c |= CapTS
		case "TSMODE":
			c |= CapTSMode
		case "SJOIN":
			c |= CapSJOIN
		case "NOQUIT":
			c |= CapNoQuit
		case "ATTR":
			c |= CapAttr
		case "SHORTAKILL":
			c |= CapShortAkill
		case "SERVICESID":
			c |= CapServicesID
		}
	}
	return c
}

// EncodeCapab renders a Cap mask back into the space-separated token
// list sent on an outbound CAPAB banner.
func EncodeCapab(c Cap) []string {
	var out []string
	add := func(bit Cap, name string) {
		if c&bit != 0 {
			out = append(out, name)
		}
	}
	add(CapTS, "TS")
	add(CapTSMode, "TSMODE")
	add(CapSJOIN, "SJOIN")
	add(CapNoQuit, "NOQUIT")
	add(CapAttr, "ATTR")
	add(CapShortAkill, "SHORTAKILL")
	add(CapServicesID, "SERVICESID")
	return out
}
