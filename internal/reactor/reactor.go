// Package reactor implements the cooperative event loop of spec §4.A: a
// single logical dispatch stream driving socket readiness, timers, an
// after-poll hook, and deferred module reloads, once per tick.
//
// The original daemon runs this as a single OS thread calling
// poll()/kqueue/select directly. Go's analogue keeps "every mutation of
// shared state happens on one logical thread" (spec §5) while letting
// each connection's blocking read live on its own goroutine: per-socket
// goroutines only ever push completed reads onto a single channel that
// the Reactor's Run loop drains, mirroring the teacher's
// clientHandler-feeds-messagePump / messageHandler-drains-messagePump
// split in internal/meshage/client.go and internal/meshage/message.go.
// The central loop is the only place that ever touches a Socket's
// buffers or the event bus, so handlers never need locks.
package reactor

import (
	"sort"
	"time"

	"github.com/palisade-irc/palisaded/internal/event"
	log "github.com/palisade-irc/palisaded/pkg/ircdlog"
)

// readyEvent is what a per-socket reader goroutine pushes onto the
// reactor's central channel: a chunk of bytes (or an error/EOF) tagged
// with which socket it came from.
type readyEvent struct {
	sock *Socket
	data []byte
	err  error
}

// Reactor owns every live Socket and Timer and runs the tick loop
// described in spec §4.A.
type Reactor struct {
	sockets map[uint64]*Socket
	nextID  uint64

	timers *timerList

	ready chan readyEvent
	dead  []*Socket // marked dead this tick, reaped between ticks

	AfterPoll *event.Event // fires once per tick with no payload

	reload func() // ApplyPendingReloads hook, wired by the daemon

	stop chan struct{}
}

func New() *Reactor {
	return &Reactor{
		sockets:   map[uint64]*Socket{},
		timers:    newTimerList(),
		ready:     make(chan readyEvent, 256),
		AfterPoll: event.New("after_poll", event.FlagNoReturn),
		stop:      make(chan struct{}),
	}
}

// OnReload wires the module host's deferred-reload application into step
// 6 of the tick ("apply pending module reloads").
func (r *Reactor) OnReload(fn func()) { r.reload = fn }

// Register adopts a Socket, launching its reader goroutine if it wants
// reads. The Socket is owned by the reactor from this point: only Run's
// goroutine (via the handler callbacks) may mutate it.
func (r *Reactor) Register(s *Socket) {
	r.nextID++
	s.id = r.nextID
	s.owner = r
	r.sockets[s.id] = s
	if s.wantRead && s.reader != nil {
		go s.pump(r.ready)
	}
}

// MarkDead flags s for reaping after this tick completes, per spec §4.A
// ("sockets are marked dead rather than freed inline so that handlers
// later in the same tick do not traverse a freed descriptor").
func (r *Reactor) MarkDead(s *Socket) {
	if s.dead {
		return
	}
	s.dead = true
	r.dead = append(r.dead, s)
}

// AddTimer schedules fn to run after delay, repeating every period for
// repeat more times (repeat < 0 means forever, repeat == 0 means once).
func (r *Reactor) AddTimer(delay, period time.Duration, repeat int, fn func()) uint64 {
	return r.timers.insert(delay, period, repeat, fn)
}

func (r *Reactor) RemoveTimer(id uint64) bool { return r.timers.remove(id) }

func (r *Reactor) AdjustTimer(id uint64, delay time.Duration) bool {
	return r.timers.adjust(id, delay)
}

// Stop ends Run's loop after its current tick.
func (r *Reactor) Stop() { close(r.stop) }

// Run executes the tick loop until Stop is called. Each tick: wait for
// either a timer to come due or a socket to become ready (step 1-2),
// reap dead sockets from the previous tick (step 3), run due timers
// (step 4), fire after-poll (step 5), apply pending reloads (step 6).
func (r *Reactor) Run() {
	for {
		select {
		case <-r.stop:
			return
		default:
		}

		r.reap()

		timeout := r.timers.nextDelay()
		select {
		case <-r.stop:
			return
		case ev := <-r.ready:
			r.deliver(ev)
			r.drainPending()
		case <-time.After(timeout):
		}

		r.timers.runDue(time.Now())
		r.AfterPoll.Fire(nil)

		if r.reload != nil {
			r.reload()
		}
	}
}

// drainPending delivers any additional ready-events already queued
// without waiting on the timer, so a burst of traffic on one tick is
// processed together before timers run.
func (r *Reactor) drainPending() {
	for {
		select {
		case ev := <-r.ready:
			r.deliver(ev)
		default:
			return
		}
	}
}

func (r *Reactor) deliver(ev readyEvent) {
	s := ev.sock
	if s.dead {
		return
	}
	if ev.err != nil {
		s.eof = true
		if s.OnClose != nil {
			s.OnClose(s, ev.err)
		}
		r.MarkDead(s)
		return
	}
	if s.OnReadable != nil {
		s.OnReadable(s, ev.data)
	}
}

// reap frees every socket marked dead during the prior tick, per spec
// §4.A ("The reaper frees dead sockets between ticks").
func (r *Reactor) reap() {
	if len(r.dead) == 0 {
		return
	}
	for _, s := range r.dead {
		delete(r.sockets, s.id)
		if s.conn != nil {
			_ = s.conn.Close()
		}
		log.Debug("reactor: reaped socket %d", s.id)
	}
	r.dead = r.dead[:0]
}

// Sockets returns every live (non-dead) socket, ordered by id for
// deterministic iteration in tests and diagnostics.
func (r *Reactor) Sockets() []*Socket {
	out := make([]*Socket, 0, len(r.sockets))
	for _, s := range r.sockets {
		if !s.dead {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
