package mode

import (
	"strings"

	"github.com/palisade-irc/palisaded/internal/state"
)

// Change is one successfully-applied mode letter, accumulated into the
// condensed outgoing mode string.
type Change struct {
	Add    bool
	Letter byte
	Arg    string // "" if this letter takes no argument
}

// ApplyResult is the outcome of applying one MODE line to a channel:
// the changes that actually took effect, plus the two error buckets
// spec §4.H calls for ("Errors aggregate into two buckets -- 'unknown'
// and 'no permission' -- and are replied once at the end").
type ApplyResult struct {
	Changes    []Change
	Unknown    []byte // letters with no registered handler
	NoPerm     []byte // letters the setter rejected for permission reasons
	Truncated  bool   // true if more letters were requested than MaxModesPerLine allowed
}

// ErrNoPermission is returned by a Mode's Set function to route the
// letter into the NoPerm bucket rather than a hard error reply.
var ErrNoPermission = noPermError{}

type noPermError struct{}

func (noPermError) Error() string { return "mode: no permission" }

// Condensed renders r.Changes back into a "+nt-l" style string with a
// trailing space-separated argument list, used both for local replies
// and for peer propagation.
func (r ApplyResult) Condensed() (string, []string) {
	var b strings.Builder
	var args []string
	lastAdd := -1
	for _, c := range r.Changes {
		if lastAdd != boolToInt(c.Add) {
			if c.Add {
				b.WriteByte('+')
			} else {
				b.WriteByte('-')
			}
			lastAdd = boolToInt(c.Add)
		}
		b.WriteByte(c.Letter)
		if c.Arg != "" {
			args = append(args, c.Arg)
		}
	}
	return b.String(), args
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Apply parses a "+/-letters" token stream against args and mutates ch,
// honoring e.MaxModesPerLine (spec §4.H). by is the acting client, used
// by Set functions that need the actor (e.g. access checks, op-override
// bypasses already having been decided by the caller via the
// can_*_channel events before Apply is invoked).
func (e *Engine) Apply(ch *state.Channel, by *state.Client, letters string, args []string) ApplyResult {
	var res ApplyResult
	add := true
	argi := 0
	processed := 0

	for i := 0; i < len(letters); i++ {
		c := letters[i]
		switch c {
		case '+':
			add = true
			continue
		case '-':
			add = false
			continue
		}

		if processed >= e.MaxModesPerLine {
			res.Truncated = true
			break
		}

		m, ok := e.channelModes[c]
		if !ok {
			res.Unknown = append(res.Unknown, c)
			continue
		}

		var raw string
		takesArg := (add && m.TakesArgOnSet()) || (!add && m.TakesArgOnUnset())
		if takesArg {
			if argi < len(args) {
				raw = args[argi]
				argi++
			}
		}

		consumed, result, err := m.Set(ch, by, add, raw)
		processed++
		if err != nil {
			if err == ErrNoPermission {
				res.NoPerm = append(res.NoPerm, c)
			} else {
				res.Unknown = append(res.Unknown, c)
			}
			continue
		}
		if !result.Applied {
			continue
		}
		change := Change{Add: add, Letter: c}
		if consumed {
			change.Arg = result.Arg
		}
		res.Changes = append(res.Changes, change)
	}

	return res
}
