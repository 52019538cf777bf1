// Package proxyscan probes a freshly-connected client's address for
// common open-proxy listeners before registration completes, spec
// §3-supplemented from original_source/modules/proxyscan/proxyscan.c/.h
// ("refuse registration from a host running an open proxy, since it
// likely fronts an abusive flood source").
//
// The raw-protocol probes (HTTP CONNECT, SOCKS4) are written directly
// against the candidate port using github.com/ziutek/telnet for the
// line-oriented read/expect loop (the same library the pack reaches for
// whenever a protocol probe needs "write a line, wait for a matching
// line back" rather than a full protocol implementation); the SOCKS5
// check instead dials all the way through using
// golang.org/x/net/proxy, since for SOCKS5 just getting a clean dial to
// our own listener back is a stronger signal than parsing the raw
// handshake bytes.
package proxyscan

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/ziutek/telnet"
	"golang.org/x/net/proxy"
)

// Ports is the default candidate set of open-proxy listener ports spec's
// original_source scans.
var Ports = []int{1080, 3128, 8080, 23, 6667}

// CallbackAddr is the address every probe (SOCKS4, SOCKS5, HTTP CONNECT)
// asks the suspected proxy to connect to; a proxy that accepts the
// request counts as open, and nothing watches for the connection itself.
// cmd/ircd wires this to its server name and client port.
type Scanner struct {
	CallbackAddr string
	Timeout      time.Duration
}

func New(callbackAddr string) *Scanner {
	return &Scanner{CallbackAddr: callbackAddr, Timeout: 3 * time.Second}
}

// ScanHTTP probes host:port for an HTTP CONNECT proxy by issuing a CONNECT
// to our own callback address and checking for a "200" status line.
func (s *Scanner) ScanHTTP(host string, port int) bool {
	conn, err := telnet.Dial("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return false
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(s.Timeout))
	conn.SetUnixWriteMode(true)
	fmt.Fprintf(conn, "CONNECT %s HTTP/1.0\r\n\r\n", s.CallbackAddr)
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return false
	}
	return containsStatus200(reply)
}

func containsStatus200(line string) bool {
	for i := 0; i+3 <= len(line); i++ {
		if line[i] == '2' && line[i+1] == '0' && line[i+2] == '0' {
			return true
		}
	}
	return false
}

// ScanSocks4 probes host:port for a bare SOCKS4 proxy by issuing a
// CONNECT request to our callback address and checking for the SOCKS4
// "request granted" reply byte (0x5a).
func (s *Scanner) ScanSocks4(host string, port int) bool {
	addr, dport, err := splitCallback(s.CallbackAddr)
	if err != nil {
		return false
	}
	conn, err := telnet.Dial("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return false
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(s.Timeout))

	req := []byte{0x04, 0x01, byte(dport >> 8), byte(dport)}
	req = append(req, addr.To4()...)
	req = append(req, 0x00)
	if _, err := conn.Write(req); err != nil {
		return false
	}
	resp := make([]byte, 8)
	n, err := conn.Read(resp)
	return err == nil && n >= 2 && resp[1] == 0x5a
}

func splitCallback(addr string) (net.IP, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, 0, err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, 0, fmt.Errorf("proxyscan: callback address has no literal IP")
	}
	var port int
	fmt.Sscanf(portStr, "%d", &port)
	return ip, port, nil
}

// ScanSocks5 dials through host:port as a SOCKS5 proxy to our own
// callback address; success means host is relaying, which is itself the
// positive detection (a client never needs us reachable via its own
// proxy).
func (s *Scanner) ScanSocks5(host string, port int) bool {
	dialer, err := proxy.SOCKS5("tcp", fmt.Sprintf("%s:%d", host, port), nil, proxy.Direct)
	if err != nil {
		return false
	}
	conn, err := dialer.Dial("tcp", s.CallbackAddr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// ScanAll tries every known proxy protocol against every candidate port,
// returning true on the first hit.
func (s *Scanner) ScanAll(host string) bool {
	for _, port := range Ports {
		if s.ScanSocks5(host, port) || s.ScanSocks4(host, port) || s.ScanHTTP(host, port) {
			return true
		}
	}
	return false
}
