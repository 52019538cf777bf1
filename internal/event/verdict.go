package event

// Verdict is the fold result of a FlagConditional event: a sum type over
// the sentinel codes from event.h (HOOK_COND_*) plus an explicit numeric
// rejection code, per Design Notes' "Conditional event folding".
type Verdict struct {
	Pass bool
	// Code carries a specific non-sentinel rejection code (e.g. a numeric
	// reply) when a hook returned one instead of a sentinel. Zero means
	// no specific code was produced.
	Code int
}

// Sentinel hook return values for conditional events. A hook on a
// FlagConditional event returns one of these (or an int reply code, which
// ends the fold at once with a fail verdict carrying that code).
type Sentinel int

const (
	AlwaysOK Sentinel = iota - 4 // short-circuit pass, skip remaining hooks
	NeverOK                      // short-circuit fail, skip remaining hooks
	OK                           // contributes a pass
	NotOK                        // contributes a fail
	Neutral                      // ignored
)

// FireConditional folds hook results left to right using the sentinel
// rules from spec §4.B:
//
//	ALWAYS_OK -> immediate pass, remaining hooks are not called
//	NEVER_OK  -> immediate fail, remaining hooks are not called
//	OK        -> contributes pass (unless a later hook fails)
//	NOT_OK    -> contributes fail
//	NEUTRAL   -> ignored
//	any other returned value is treated as a specific rejection code
//
// The event should have been constructed with FlagConditional; this is
// not enforced so that tests can exercise the fold logic directly.
func (e *Event) FireConditional(data interface{}) Verdict {
	hooks := e.snapshot()

	verdict := Verdict{Pass: true}
	sawOK := false

	for _, h := range hooks {
		r := h.fn(data)

		switch v := r.(type) {
		case nil:
			// Neutral.
		case Sentinel:
			switch v {
			case AlwaysOK:
				e.endCall(hooks)
				return Verdict{Pass: true}
			case NeverOK:
				e.endCall(hooks)
				return Verdict{Pass: false}
			case OK:
				sawOK = true
			case NotOK:
				verdict.Pass = false
			case Neutral:
				// ignored
			}
		case int:
			verdict.Pass = false
			verdict.Code = v
			e.endCall(hooks)
			return verdict
		}
	}

	e.endCall(hooks)

	if !sawOK && verdict.Pass {
		// No hook voted either way: default to pass (an event with zero
		// hooks, or all-neutral hooks, permits the action).
		return Verdict{Pass: true}
	}
	return verdict
}
