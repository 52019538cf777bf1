// Package ident performs the RFC 1413 ident lookup spec §3 implies for a
// Connection's resolved username (internal/modules/core's cmdUser uses
// the ident answer when one arrived, else the client-supplied USER field
// unchanged, with no '~' prefix): dial the peer's port 113 and ask it
// who owns the (localport, remoteport) pair.
//
// A second path, PTYProbe, runs a configured external ident-query helper
// under a pseudo-terminal instead of dialing directly -- grounded on the
// teacher's own use of github.com/kr/pty for driving an interactive
// subprocess (cmd/miniccc's shell attachment) -- for deployments where
// the ident socket must be reached through a privileged helper binary
// rather than directly from the daemon's own process.
package ident

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/kr/pty"
)

// Result is a successful ident response, RFC 1413 §3's USERID line split
// into its fields.
type Result struct {
	OSType string
	User   string
}

// Probe dials host:113 and asks for the identity owning the
// (localPort, remotePort) pair as seen from the connecting side (i.e.
// localPort is our listening port, remotePort is the client's ephemeral
// port).
func Probe(ctx context.Context, host string, localPort, remotePort int, timeout time.Duration) (*Result, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, "113"))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(timeout))
	fmt.Fprintf(conn, "%d,%d\r\n", remotePort, localPort)

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return nil, err
	}
	return parseReply(line)
}

func parseReply(line string) (*Result, error) {
	parts := strings.SplitN(line, ":", 4)
	if len(parts) < 4 || !strings.EqualFold(strings.TrimSpace(parts[1]), "USERID") {
		return nil, fmt.Errorf("ident: malformed reply %q", line)
	}
	osAndCharset := strings.SplitN(parts[2], ",", 2)
	return &Result{
		OSType: strings.TrimSpace(osAndCharset[0]),
		User:   strings.TrimSpace(parts[3]),
	}, nil
}

// PTYProbe runs helperCmd (e.g. a site-local setuid ident-query binary)
// attached to a pty, writes the query line to its stdin, and parses its
// stdout the same way Probe parses a direct ident-socket reply.
func PTYProbe(helperCmd string, args []string, remotePort, localPort int, timeout time.Duration) (*Result, error) {
	cmd := exec.Command(helperCmd, args...)
	f, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	done := make(chan struct{})
	go func() {
		fmt.Fprintf(f, "%d,%d\r\n", remotePort, localPort)
		close(done)
	}()

	f.SetReadDeadline(time.Now().Add(timeout))
	reply, err := bufio.NewReader(f).ReadString('\n')
	<-done
	_ = cmd.Process.Kill()
	if err != nil {
		return nil, err
	}
	return parseReply(reply)
}
