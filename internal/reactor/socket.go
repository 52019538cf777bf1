package reactor

import "net"

// Socket wraps one connection's readiness state, spec §3 "Connection"
// and §4.A's want_read/want_write/pending/eof flag set. TLS cross-wait
// (read-wanting-write or write-wanting-read) is represented by the
// tlsWantWrite/tlsWantRead pair rather than collapsing onto the plain
// want flags, so a handshake in progress is distinguishable from
// ordinary I/O readiness.
type Socket struct {
	id    uint64
	owner *Reactor

	conn   net.Conn
	reader func([]byte) (int, error) // defaults to conn.Read; overridable for tests

	wantRead  bool
	wantWrite bool

	tlsHandshaking bool
	tlsWantRead    bool
	tlsWantWrite   bool

	eof  bool
	dead bool

	// OnReadable is invoked on the reactor's single dispatch goroutine
	// whenever a read completes, never concurrently with any other
	// socket's callback.
	OnReadable func(s *Socket, data []byte)
	OnClose    func(s *Socket, err error)

	RemoteAddr string
}

// NewSocket wraps conn for registration with a Reactor.
func NewSocket(conn net.Conn) *Socket {
	s := &Socket{conn: conn, wantRead: true}
	if conn != nil {
		s.RemoteAddr = conn.RemoteAddr().String()
		s.reader = conn.Read
	}
	return s
}

func (s *Socket) ID() uint64   { return s.id }
func (s *Socket) Dead() bool   { return s.dead }
func (s *Socket) EOF() bool    { return s.eof }
func (s *Socket) Conn() net.Conn { return s.conn }

// Write sends b on the underlying connection directly; the reactor does
// not buffer writes, and neither does internal/conn's Conn.Send, which
// writes each line straight through this method.
func (s *Socket) Write(b []byte) (int, error) {
	if s.conn == nil {
		return 0, nil
	}
	return s.conn.Write(b)
}

// pump is the per-socket goroutine that turns blocking reads into
// readyEvents on the reactor's central channel, grounded on
// internal/meshage/client.go's clientHandler decode loop feeding
// n.messagePump.
func (s *Socket) pump(out chan<- readyEvent) {
	buf := make([]byte, 4096)
	for {
		n, err := s.reader(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			out <- readyEvent{sock: s, data: chunk}
		}
		if err != nil {
			out <- readyEvent{sock: s, err: err}
			return
		}
	}
}
