// Package mode implements the per-letter mode engine of spec §4.H:
// channel mode classes A (list), B (param always), C (param on set), D
// (flag), and PREFIX (per-membership rank), plus the MODE command's
// +/-letters parsing, condensed-output accumulation, and the conditional
// access-check events (can_join_channel, can_send_channel, ...).
//
// Grounded on original_source/modules/ircd/commands/mode.c's letter
// dispatch and the addon cmode_*.c modules (cmode_filter.c,
// cmode_operonly.c, cmode_private.c, cmode_strip.c, cmodes_regonly.c)
// for the class split and the unknown-vs-no-permission error bucketing;
// expressed in Go as a registry of Mode values rather than a table of
// function pointers, per Design Notes ("table-driven adapter... new
// dialects are new table entries, not subclasses").
package mode

import (
	"github.com/palisade-irc/palisaded/internal/event"
	"github.com/palisade-irc/palisaded/internal/state"
)

// Class distinguishes the five mode shapes of spec §4.H.
type Class int

const (
	ClassList       Class = iota // A: bans and similar; bounded set, arg on both set/unset
	ClassParamAlways             // B: arg required on both set and unset (key)
	ClassParamOnSet              // C: arg required on set, absent on unset (limit)
	ClassFlag                    // D: no argument (moderated, secret, ...)
	ClassPrefix                  // per-membership rank (op, voice, ...)
)

// SetResult reports what a Mode's Setter did, so the MODE command can
// build the condensed outgoing mode string with the argument the setter
// actually consumed (which may differ from what was requested, e.g. a
// list mode rejecting a malformed mask).
type SetResult struct {
	Applied bool
	Arg     string // echoed argument, if any
}

// SetFunc mutates ch (add=true to set the letter, false to unset) using
// by as the actor and raw as the next unconsumed argument token (may be
// "" if the class takes none). It returns whether raw was consumed.
type SetFunc func(ch *state.Channel, by *state.Client, add bool, raw string) (consumedArg bool, result SetResult, err error)

// QueryFunc serializes ch's current state for this letter back into zero
// or more (add, arg) applications, used for burst and for the mode
// round-trip law in spec §8 ("serializing a channel's mode state via the
// per-mode query and re-applying via set yields identical state").
type QueryFunc func(ch *state.Channel) []QueryResult

type QueryResult struct {
	Arg string
}

// Mode is one registered channel-mode letter.
type Mode struct {
	Letter byte
	Class  Class
	Bit    uint64 // Channel.Modes bit, meaningful for ClassFlag/ClassParamAlways/ClassParamOnSet
	MemberBit uint32 // Membership.Flags bit, meaningful for ClassPrefix
	Prefix byte   // rank character (e.g. '@', '+'), ClassPrefix only
	Rank   int    // lower = higher rank, used to pick NAMES/WHO prefix
	MaxListSize int // ClassList only; not consulted by AddBan, which caps every ban list at MaxBansPerChannel

	Set   SetFunc
	Query QueryFunc
}

func (m *Mode) TakesArgOnSet() bool {
	return m.Class == ClassList || m.Class == ClassParamAlways || m.Class == ClassParamOnSet || m.Class == ClassPrefix
}

func (m *Mode) TakesArgOnUnset() bool {
	return m.Class == ClassList || m.Class == ClassParamAlways || m.Class == ClassPrefix
}

// UserMode is a per-client (USER mode) flag letter, a simpler analogue
// of channel D-class modes with no per-channel state.
type UserMode struct {
	Letter byte
	Bit    uint64
	// OperOnly marks a mode only an operator may self-set (+a, +h, +S):
	// internal/modules/core's applyUserModes refuses to add it for a
	// client without UserModeOperator.
	OperOnly bool
}

// MaxBansPerChannel is the spec default ("at most N (default 100)").
const MaxBansPerChannel = 100

// Engine owns the registered channel- and user-mode tables plus the
// conditional access-check events of spec §4.H.
type Engine struct {
	channelModes map[byte]*Mode
	userModes    map[byte]*UserMode
	prefixes     []*Mode // ClassPrefix modes, ordered by Rank ascending (highest rank first)

	// MaxModesPerLine bounds how many mode letters the MODE command
	// processes from one line (spec §4.H, "default 6 for local clients").
	MaxModesPerLine int

	CanJoinChannel *event.Event
	CanSendChannel *event.Event
	CanNickChannel *event.Event
	CanSendClient  *event.Event
	CanSeeChannel  *event.Event
	CanNickClient  *event.Event
}

func NewEngine() *Engine {
	return &Engine{
		channelModes:    map[byte]*Mode{},
		userModes:       map[byte]*UserMode{},
		MaxModesPerLine: 6,
		CanJoinChannel:  event.New("can_join_channel", event.FlagConditional),
		CanSendChannel:  event.New("can_send_channel", event.FlagConditional),
		CanNickChannel:  event.New("can_nick_channel", event.FlagConditional),
		CanSendClient:   event.New("can_send_client", event.FlagConditional),
		CanSeeChannel:   event.New("can_see_channel", event.FlagConditional),
		CanNickClient:   event.New("can_nick_client", event.FlagConditional),
	}
}

// RegisterChannelMode installs or replaces a channel-mode letter, used
// both by the built-in core modes and by addon modules (cmode_filter,
// cmode_operonly, ...).
func (e *Engine) RegisterChannelMode(m *Mode) {
	e.channelModes[m.Letter] = m
	if m.Class == ClassPrefix {
		e.prefixes = append(e.prefixes, m)
		sortPrefixes(e.prefixes)
	}
}

func (e *Engine) UnregisterChannelMode(letter byte) {
	m, ok := e.channelModes[letter]
	if !ok {
		return
	}
	delete(e.channelModes, letter)
	if m.Class == ClassPrefix {
		out := e.prefixes[:0]
		for _, p := range e.prefixes {
			if p.Letter != letter {
				out = append(out, p)
			}
		}
		e.prefixes = out
	}
}

func (e *Engine) ChannelMode(letter byte) (*Mode, bool) {
	m, ok := e.channelModes[letter]
	return m, ok
}

func (e *Engine) RegisterUserMode(m *UserMode) {
	e.userModes[m.Letter] = m
}

func (e *Engine) UserMode(letter byte) (*UserMode, bool) {
	m, ok := e.userModes[letter]
	return m, ok
}

// Prefixes returns ClassPrefix modes ordered highest-rank-first.
func (e *Engine) Prefixes() []*Mode { return e.prefixes }

// HighestPrefix returns the rank character a membership should display
// in NAMES/WHO: the highest-ranked ClassPrefix bit currently set.
func (e *Engine) HighestPrefix(flags uint32) (byte, bool) {
	for _, p := range e.prefixes {
		if flags&p.MemberBit != 0 {
			return p.Prefix, true
		}
	}
	return 0, false
}

func sortPrefixes(p []*Mode) {
	for i := 1; i < len(p); i++ {
		for j := i; j > 0 && p[j].Rank < p[j-1].Rank; j-- {
			p[j], p[j-1] = p[j-1], p[j]
		}
	}
}
