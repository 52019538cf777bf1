package mode

import (
	"net"
	"strings"
	"time"

	"github.com/palisade-irc/palisaded/internal/state"
	"github.com/palisade-irc/palisaded/pkg/glob"
)

// SplitBanMask splits a "nick!user@host" ban mask into its three parts,
// defaulting absent parts to "*" as the original daemon does.
func SplitBanMask(mask string) (nick, user, host string) {
	nick, user, host = "*", "*", "*"
	rest := mask
	hadBang := false
	if i := strings.IndexByte(rest, '!'); i >= 0 {
		nick = rest[:i]
		rest = rest[i+1:]
		hadBang = true
	}
	if i := strings.IndexByte(rest, '@'); i >= 0 {
		user = rest[:i]
		host = rest[i+1:]
	} else if hadBang {
		user = rest
	} else {
		host = rest
	}
	return
}

// Matches reports whether b matches c, following spec §4.H's ban-check
// order: nick, then user, then host tried as display-host glob, IP
// literal match, then orig-host glob -- first host alternative to match
// wins.
func (b *BanEntry) Matches(c *state.Client) bool {
	if !glob.Match(b.Nick, c.Nick) {
		return false
	}
	if !glob.Match(b.User, c.User) {
		return false
	}
	if glob.Match(b.Host, c.Host) {
		return true
	}
	if matchIP(b.Host, c.IP) {
		return true
	}
	if glob.Match(b.Host, c.Orighost) {
		return true
	}
	return false
}

// matchIP treats pattern as a literal IP (optionally with a glob'd
// octet/group) and compares it against ip; a pattern without '*'/'?' is
// parsed as an IP address and compared for equality (falling back to a
// textual compare if it does not parse). CIDR masks are not recognized.
func matchIP(pattern, ip string) bool {
	if ip == "" {
		return false
	}
	if !strings.ContainsAny(pattern, "*?") {
		if pip := net.ParseIP(pattern); pip != nil {
			cip := net.ParseIP(ip)
			return cip != nil && pip.Equal(cip)
		}
		return pattern == ip
	}
	return glob.Match(pattern, ip)
}

// BanEntry is spec §3's Ban entry, local to the mode package since ban
// matching is mode-engine behavior; internal/state.Ban stores the same
// fields for the graph's bookkeeping and AsEntry/FromEntry convert
// between the two.
type BanEntry struct {
	Nick, User, Host string
	Who              string
	When             time.Time
	Type             string
}

func AsEntry(b *state.Ban) BanEntry {
	return BanEntry{Nick: b.Nick, User: b.User, Host: b.Host, Who: b.Who, When: b.When, Type: b.Type}
}

// AddBan appends a ban to ch, rejecting once MaxBansPerChannel (spec
// §3's default N=100) is reached.
func AddBan(ch *state.Channel, mask, who, typ string) (ok bool) {
	max := MaxBansPerChannel
	if len(ch.Bans) >= max {
		return false
	}
	nick, user, host := SplitBanMask(mask)
	ch.Bans = append(ch.Bans, &state.Ban{Nick: nick, User: user, Host: host, Who: who, When: time.Now(), Type: typ})
	return true
}

// RemoveBan deletes the first ban whose mask renders identically to
// mask, returning whether one was removed.
func RemoveBan(ch *state.Channel, mask string) bool {
	nick, user, host := SplitBanMask(mask)
	for i, b := range ch.Bans {
		if b.Nick == nick && b.User == user && b.Host == host {
			ch.Bans = append(ch.Bans[:i], ch.Bans[i+1:]...)
			return true
		}
	}
	return false
}

// RecountBanHits recomputes m.BanHits against ch's current ban list,
// matching spec §8's law ("Ban-check count clp.bans equals
// |{b in ch.bans : matches(b, clp.cli)}|"). Call after any ban-list
// mutation so sends need not rescan (spec §4.H, "Cache the total match
// count per membership").
func RecountBanHits(ch *state.Channel, m *state.Membership) {
	n := 0
	for _, b := range ch.Bans {
		e := AsEntry(b)
		if e.Matches(m.Client) {
			n++
		}
	}
	m.BanHits = n
}

// RecountAllMembers recomputes every member's BanHits, used after a
// ban-list-wide change (e.g. a peer TS reset clearing +b).
func RecountAllMembers(ch *state.Channel) {
	for _, m := range ch.Members {
		RecountBanHits(ch, m)
	}
}
