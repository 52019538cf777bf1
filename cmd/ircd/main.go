package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/peterh/liner"
	"golang.org/x/crypto/bcrypt"

	"github.com/palisade-irc/palisaded/internal/config"
	"github.com/palisade-irc/palisaded/internal/conn"
	"github.com/palisade-irc/palisaded/internal/dispatch"
	"github.com/palisade-irc/palisaded/internal/line"
	"github.com/palisade-irc/palisaded/internal/mode"
	"github.com/palisade-irc/palisaded/internal/modhost"
	"github.com/palisade-irc/palisaded/internal/modules/cmodeaddons"
	"github.com/palisade-irc/palisaded/internal/modules/core"
	"github.com/palisade-irc/palisaded/internal/modules/ident"
	"github.com/palisade-irc/palisaded/internal/modules/proxyscan"
	"github.com/palisade-irc/palisaded/internal/modules/quarantine"
	"github.com/palisade-irc/palisaded/internal/modules/resolver"
	"github.com/palisade-irc/palisaded/internal/modules/services"
	"github.com/palisade-irc/palisaded/internal/modules/sqline"
	"github.com/palisade-irc/palisaded/internal/modules/sysinfo"
	"github.com/palisade-irc/palisaded/internal/modules/umodeaddons"
	"github.com/palisade-irc/palisaded/internal/reactor"
	"github.com/palisade-irc/palisaded/internal/router"
	"github.com/palisade-irc/palisaded/internal/state"
	log "github.com/palisade-irc/palisaded/pkg/ircdlog"
)

const banner = `palisaded, an ithildin-lineage IRC daemon`

var (
	f_config  = flag.String("c", "/etc/palisaded/ircd.conf", "path to the configuration file")
	f_check   = flag.Bool("C", false, "parse the configuration file, report errors, and exit")
	f_debug   = flag.String("d", "", "debug log level (debug, info, warn, error)")
	f_logfile = flag.String("l", "", "path to write the log file (default stderr only)")
	f_console = flag.Bool("n", false, "stay in the foreground and offer an operator console on stdin")
	f_port    = flag.Int("p", 6667, "default client listen port, overridden by a top-level port entry in the config")
	f_version = flag.Bool("v", false, "print the version and exit")
)

func usage() {
	fmt.Println(banner)
	fmt.Println("usage: ircd [-c conf] [-C] [-d level] [-l logfile] [-n] [-p port] [-v]")
	flag.PrintDefaults()
}

// daemon bundles every live component main wires together; it exists so
// the accept loop, the reload handler, and the console can all reach the
// same set of engines without package-level globals.
type daemon struct {
	reactor    *reactor.Reactor
	conf       *config.Tree
	graph      *state.Graph
	modeEngine *mode.Engine
	dispatcher *dispatch.Dispatcher
	router     *router.Router
	host       *modhost.Host

	coreMod       *core.Module
	quarantineMod *quarantine.Module
	sqlineMod     *sqline.Module
	servicesMod   *services.Module
	resolver      *resolver.Resolver
	proxyscan     *proxyscan.Scanner

	serverName string
	serverInfo string

	connsMu sync.RWMutex
	conns   map[interface{}]*conn.Conn
}

func newDaemon(serverName, serverInfo, confPath string) *daemon {
	d := &daemon{
		reactor:    reactor.New(),
		conf:       config.NewTree(confPath),
		graph:      state.NewGraph(serverName, serverInfo, state.RFC1459Fold),
		modeEngine: mode.NewEngine(),
		dispatcher: dispatch.New(),
		serverName: serverName,
		serverInfo: serverInfo,
		conns:      map[interface{}]*conn.Conn{},
	}
	mode.RegisterCore(d.modeEngine)
	d.router = router.New(d.graph, d.connOf, d.flagSubscribers, d.modeEngine)
	d.host = modhost.NewHost(nil)

	d.coreMod = core.New(d.graph, d.modeEngine, d.router, d.host, serverName, serverInfo)
	d.coreMod.Register(d.dispatcher)
	d.host.Register(d.coreMod.AsModule())

	um := umodeaddons.New(d.modeEngine)
	d.host.Register(um.AsModule())

	cm := cmodeaddons.New(d.modeEngine)
	d.host.Register(cm.AsModule())

	d.sqlineMod = sqline.New(d.graph, d.modeEngine, d.router)
	d.sqlineMod.Register(d.dispatcher)
	d.host.Register(d.sqlineMod.AsModule())

	d.quarantineMod = quarantine.New(d.modeEngine)
	d.host.Register(d.quarantineMod.AsModule())

	sm := sysinfo.New()
	sm.Register(d.dispatcher)
	d.host.Register(sm.AsModule())

	d.servicesMod = services.New(d.graph, d.modeEngine, d.router, services.NoopMailSender{})
	d.servicesMod.Register(d.dispatcher)
	d.host.Register(d.servicesMod.AsModule())

	conn.ReplyFormatter = d.dispatcher.Format
	core.SetOperChecker(d.checkOperCredentials)

	return d
}

// connOf implements router.ConnOf by consulting the registry maintained
// in the accept loop; owner is either a *state.Client or *state.Server.
func (d *daemon) connOf(owner interface{}) *conn.Conn {
	d.connsMu.RLock()
	defer d.connsMu.RUnlock()
	return d.conns[owner]
}

func (d *daemon) trackConn(owner interface{}, c *conn.Conn) {
	d.connsMu.Lock()
	d.conns[owner] = c
	d.connsMu.Unlock()
}

func (d *daemon) untrackConn(owner interface{}) {
	d.connsMu.Lock()
	delete(d.conns, owner)
	d.connsMu.Unlock()
}

func (d *daemon) flagSubscribers(flag string) []*state.Client {
	return d.coreMod.Flagged(flag)
}

// checkOperCredentials validates an OPER name/password against the
// configured operator{} blocks (spec §4.C), hashed with bcrypt the way
// the teacher's own miniweb auth.go checks its password file.
func (d *daemon) checkOperCredentials(name, pass, host string) bool {
	for _, e := range config.FindAll(d.conf.Root(), "operator", config.List) {
		var opName, opPass, opHost string
		for _, child := range e.Children {
			switch child.Name {
			case "name":
				opName = child.Value
			case "password":
				opPass = child.Value
			case "host":
				opHost = child.Value
			}
		}
		if opName != name {
			continue
		}
		if opHost != "" && !hostMatches(opHost, host) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(opPass), []byte(pass)) == nil {
			return true
		}
	}
	return false
}

func hostMatches(mask, host string) bool {
	return mask == "*" || mask == host
}

func main() {
	flag.Usage = usage
	flag.Parse()

	log.Init()
	if *f_debug != "" {
		if lvl, err := log.ParseLevel(*f_debug); err == nil {
			log.SetLevel(lvl)
		}
	}
	if *f_logfile != "" {
		f, err := os.OpenFile(*f_logfile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ircd: opening log file: %v\n", err)
			os.Exit(1)
		}
		log.AddLogger("file", f, log.GetLevel(), false)
	}

	if *f_version {
		fmt.Println(banner)
		os.Exit(0)
	}

	if os.Getenv("GOMAXPROCS") == "" {
		runtime.GOMAXPROCS(runtime.NumCPU())
	}

	d := newDaemon("irc.palisade.example", "palisaded test network", *f_config)
	if err := d.conf.Load(); err != nil {
		log.Fatal("loading config %s: %v", *f_config, err)
	}

	if *f_check {
		fmt.Println("config ok")
		os.Exit(0)
	}

	d.resolver = resolver.New(nil)
	d.proxyscan = proxyscan.New(net.JoinHostPort(d.serverName, strconv.Itoa(*f_port)))

	if err := d.host.Load("core"); err != nil {
		log.Fatal("loading core module: %v", err)
	}
	for _, name := range []string{"umodeaddons", "cmodeaddons", "sqline", "quarantine", "sysinfo", "services"} {
		if err := d.host.Load(name); err != nil {
			log.Warn("loading module %s: %v", name, err)
		}
	}

	listenPort := *f_port
	if p, ok := config.FindEntry(d.conf.Root(), "port", 1); ok {
		if n, err := strconv.Atoi(p); err == nil {
			listenPort = n
		}
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", listenPort))
	if err != nil {
		log.Fatal("listening on port %d: %v", listenPort, err)
	}
	log.Info("listening for clients on %s", ln.Addr())

	shutdown := make(chan os.Signal, 1)
	hup := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	signal.Notify(hup, syscall.SIGHUP)
	signal.Ignore(syscall.SIGPIPE)

	go d.acceptLoop(ln)
	go d.reactor.Run()
	go d.reloadLoop(hup)
	d.connectPeers()

	if *f_console {
		go d.runConsole()
	}

	sig := <-shutdown
	log.Warn("caught signal %v, shutting down", sig)
	ln.Close()
	d.reactor.Stop()
}

// acceptLoop is the daemon's accept_loop (spec §4.A): accept, then apply
// quarantine/proxy checks before handing the connection to the reactor,
// following the same "validate before registration" sequencing as
// original_source/source/main.c's startup/accept wiring.
func (d *daemon) acceptLoop(ln net.Listener) {
	for {
		nc, err := ln.Accept()
		if err != nil {
			return
		}
		go d.handleAccept(nc)
	}
}

func (d *daemon) handleAccept(nc net.Conn) {
	host, _, _ := net.SplitHostPort(nc.RemoteAddr().String())

	if refuse, reason := d.quarantineMod.CheckConnect(host, host); refuse {
		nc.Write([]byte("ERROR :Connection refused: " + reason + "\r\n"))
		nc.Close()
		return
	}

	if d.proxyscan != nil && d.proxyscan.ScanAll(host) {
		log.Warn("refusing %s: open proxy detected", host)
		nc.Write([]byte("ERROR :Connection refused: open proxy detected\r\n"))
		nc.Close()
		return
	}

	sock := reactor.NewSocket(nc)
	if d.resolver != nil {
		sock.RemoteAddr = d.resolver.Lookup(context.Background(), host)
	}
	c := conn.New(sock, line.MaxArgs)
	c.State = conn.Registering

	if tcpAddr, ok := nc.LocalAddr().(*net.TCPAddr); ok {
		if remoteAddr, ok := nc.RemoteAddr().(*net.TCPAddr); ok {
			go func() {
				res, err := ident.Probe(context.Background(), host, tcpAddr.Port, remoteAddr.Port, 3*time.Second)
				if err == nil {
					c.IdentUser = res.User
				}
			}()
		}
	}

	sock.OnReadable = func(s *reactor.Socket, data []byte) {
		msgs, err := c.Framer.Feed(data)
		if err != nil {
			s.Write([]byte("ERROR :" + err.Error() + "\r\n"))
			d.reactor.MarkDead(s)
			return
		}
		for _, m := range msgs {
			d.dispatchLine(c, m)
		}
	}
	sock.OnClose = func(s *reactor.Socket, err error) {
		if c.Client != nil {
			d.untrackConn(c.Client)
		}
	}

	d.reactor.Register(sock)
}

func (d *daemon) dispatchLine(c *conn.Conn, m *line.Message) {
	weight, err := d.dispatcher.Dispatch(c, m)
	if err != nil {
		return
	}
	c.FloodAccum += weight
	if c.State == conn.ConnectedClient && c.Client != nil {
		d.trackConn(c.Client, c)
	}
}

// reloadLoop services SIGHUP: reparse the config and apply any pending
// module reloads, mirroring spec §4.A step 6 and the teacher's own
// pattern of a dedicated goroutine draining a signal channel.
func (d *daemon) reloadLoop(hup <-chan os.Signal) {
	for range hup {
		log.Info("SIGHUP received, reloading configuration")
		if err := d.conf.Reload(); err != nil {
			log.Error("reload failed: %v", err)
			continue
		}
		d.host.ApplyPendingReloads()
	}
}

// runConsole offers a liner-backed operator console on stdin when -n is
// given, the same shape as the teacher's cliLocal input loop.
func (d *daemon) runConsole() {
	input := liner.NewLiner()
	defer input.Close()
	input.SetCtrlCAborts(true)

	for {
		cmd, err := input.Prompt("ircd> ")
		if err != nil {
			return
		}
		input.AppendHistory(cmd)
		switch cmd {
		case "reload":
			if err := d.conf.Reload(); err != nil {
				fmt.Println("reload failed:", err)
				continue
			}
			d.host.ApplyPendingReloads()
			fmt.Println("reloaded")
		case "clients":
			fmt.Println(len(d.graph.Clients()))
		case "quit":
			os.Exit(0)
		default:
			fmt.Println("unknown console command:", cmd)
		}
	}
}
