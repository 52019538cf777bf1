// Package resolver performs the forward-confirmed reverse DNS lookup
// spec §3 implies for Connection.Host ("a resolved hostname, falling
// back to the literal address"): PTR the connecting IP, then confirm by
// resolving the candidate hostname's A/AAAA back to the same IP before
// trusting it, exactly the two-step check ident/DNS-spoofing-resistant
// ircds use.
//
// Spec-derived, no original grounding: no resolver source file survived
// the retrieval pack (original_source/ carries no res.c), so the
// forward-confirm check comes directly from spec §3's "resolved
// hostname" requirement. Expressed here with github.com/miekg/dns since
// the pack's only DNS library is that one.
package resolver

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// Resolver issues PTR/A queries against a configured set of nameservers,
// spec §3's "a resolved hostname, falling back to the literal address
// when resolution fails or doesn't confirm."
type Resolver struct {
	Servers []string // "host:53" pairs; falls back to system resolv.conf order if empty
	Timeout time.Duration
}

func New(servers []string) *Resolver {
	if len(servers) == 0 {
		if conf, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil {
			for _, s := range conf.Servers {
				servers = append(servers, net.JoinHostPort(s, conf.Port))
			}
		}
	}
	return &Resolver{Servers: servers, Timeout: 4 * time.Second}
}

// Lookup returns the forward-confirmed hostname for ip, or ip itself if
// no PTR record resolves or the forward check fails to round-trip.
func (r *Resolver) Lookup(ctx context.Context, ip string) string {
	ptr, err := r.reverse(ip)
	if err != nil || ptr == "" {
		return ip
	}
	if !r.confirms(ptr, ip) {
		return ip
	}
	return strings.TrimSuffix(ptr, ".")
}

func (r *Resolver) reverse(ip string) (string, error) {
	name, err := dns.ReverseAddr(ip)
	if err != nil {
		return "", err
	}
	msg := new(dns.Msg)
	msg.SetQuestion(name, dns.TypePTR)
	in, err := r.exchange(msg)
	if err != nil {
		return "", err
	}
	for _, rr := range in.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return ptr.Ptr, nil
		}
	}
	return "", fmt.Errorf("resolver: no PTR for %s", ip)
}

// confirms resolves host's A and AAAA records and checks ip appears
// among them.
func (r *Resolver) confirms(host, ip string) bool {
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(host), qtype)
		in, err := r.exchange(msg)
		if err != nil {
			continue
		}
		for _, rr := range in.Answer {
			if a, ok := rr.(*dns.A); ok && a.A.String() == ip {
				return true
			}
			if a, ok := rr.(*dns.AAAA); ok && a.AAAA.String() == ip {
				return true
			}
		}
	}
	return false
}

func (r *Resolver) exchange(msg *dns.Msg) (*dns.Msg, error) {
	c := &dns.Client{Timeout: r.Timeout}
	var lastErr error
	for _, server := range r.Servers {
		in, _, err := c.Exchange(msg, server)
		if err == nil && in != nil {
			return in, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("resolver: no nameservers configured")
	}
	return nil, lastErr
}
