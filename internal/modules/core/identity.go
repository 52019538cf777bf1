package core

import (
	"time"

	"github.com/palisade-irc/palisaded/internal/conn"
	"github.com/palisade-irc/palisaded/internal/dispatch"
	"github.com/palisade-irc/palisaded/internal/line"
	"github.com/palisade-irc/palisaded/internal/state"
)

func (m *Module) cmdNick(src dispatch.Source, msg *line.Message) int {
	c, cl := findSource(src)
	newNick := msg.Args[0]

	if existing, ok := m.Graph.FindClient(newNick); ok && existing != cl {
		src.Reply(ErrNicknameInUse, newNick)
		return 0
	}
	if !m.Mode.CheckNickChange(cl, newNick) {
		src.Reply(ErrErroneousNickname, newNick)
		return 0
	}

	if cl == nil {
		// Unregistered connection's first NICK: stage the nick, full
		// registration completes once USER also arrives.
		c.Client = &state.Client{Nick: newNick, Signon: time.Now(), TS: m.now()}
		return 0
	}

	old := prefixOf(cl)
	m.Graph.RenameClient(cl, newNick)
	notice := &line.Message{Command: "NICK", Args: []string{newNick}, Prefix: old}
	m.Router.ToCommonChannels(cl, nil, notice)
	c.Send(&line.Message{Command: "NICK", Args: []string{newNick}, Prefix: old})
	return 0
}

func (m *Module) cmdUser(src dispatch.Source, msg *line.Message) int {
	c, cl := findSource(src)
	if c.State == conn.ConnectedClient {
		src.Reply(ErrAlreadyRegistered)
		return 0
	}
	if cl == nil {
		src.Reply(ErrNoNicknameGiven)
		return 0
	}
	cl.User = msg.Args[0]
	if c.IdentUser != "" {
		cl.User = c.IdentUser
	}
	cl.Info = msg.Args[3]
	cl.Server = m.Graph.Self
	if cl.Host == "" {
		cl.Host = c.Sock.RemoteAddr
	}
	if cl.Orighost == "" {
		cl.Orighost = cl.Host
	}
	m.Graph.AddClient(cl)
	c.State = conn.ConnectedClient
	welcome(c, m.ServerName, cl.Nick)
	return 0
}

func welcome(c *conn.Conn, serverName, nick string) {
	c.Send(&line.Message{Command: "001", Prefix: serverName, Args: []string{nick, "Welcome to the network"}, HasTrailing: true})
	c.Send(&line.Message{Command: "002", Prefix: serverName, Args: []string{nick, "Your host is " + serverName}, HasTrailing: true})
}

func (m *Module) cmdPass(src dispatch.Source, msg *line.Message) int {
	// A client PASS is accepted and discarded: it is not stored, and
	// neither registration nor the OPER handler below consults it.
	return 0
}

func (m *Module) cmdPing(src dispatch.Source, msg *line.Message) int {
	c, _ := findSource(src)
	token := m.ServerName
	if len(msg.Args) > 0 {
		token = msg.Args[0]
	}
	c.Send(&line.Message{Command: "PONG", Prefix: m.ServerName, Args: []string{m.ServerName, token}})
	return 0
}

func (m *Module) cmdPong(src dispatch.Source, msg *line.Message) int {
	return 0
}

func (m *Module) cmdQuit(src dispatch.Source, msg *line.Message) int {
	c, cl := findSource(src)
	if cl == nil {
		return 0
	}
	reason := "Client Quit"
	if len(msg.Args) > 0 {
		reason = msg.Args[0]
	}
	m.broadcastQuit(cl, reason)
	m.Graph.RemoveClient(cl, reason)
	delete(m.silenced, cl)
	c.State = conn.Closing
	if c.Sock != nil {
		c.Sock.Write([]byte("ERROR :Closing Link\r\n"))
	}
	return 0
}

func (m *Module) cmdOper(src dispatch.Source, msg *line.Message) int {
	c, cl := findSource(src)
	if cl == nil {
		return 0
	}
	name, pass := msg.Args[0], msg.Args[1]
	if !m.CheckOperCredentials(name, pass, c.Sock.RemoteAddr) {
		src.Reply(ErrNoOperHost)
		return 0
	}
	cl.Modes |= state.UserModeOperator
	src.Reply(RplYoureOper)
	m.notifyFlag("GLOBOPS", "%s is now an operator", cl.Nick)
	return 0
}

// CheckOperCredentials is overridden by cmd/ircd with a config-backed
// verifier (internal/config's operator{} blocks, bcrypt password hashes
// only; MD5 hashes are not recognized); it defaults to rejecting everything so a daemon wired
// without that hookup fails closed.
var checkOperFunc func(name, pass, host string) bool

func (m *Module) CheckOperCredentials(name, pass, host string) bool {
	if checkOperFunc == nil {
		return false
	}
	return checkOperFunc(name, pass, host)
}

// SetOperChecker installs the config-backed credential verifier.
func SetOperChecker(fn func(name, pass, host string) bool) { checkOperFunc = fn }
