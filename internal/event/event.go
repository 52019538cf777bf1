// Package event implements the core hook/event bus: ordered subscribers,
// short-circuit conditional folding, and reentrancy-safe mutation while an
// event is being fired. It is grounded on the original daemon's
// include/ithildin/event.h hook system, expressed here as a generational
// slice instead of a linked list with deferred/new bits baked into each
// hook's own state (Design Notes, "Dynamic command dispatch and hook
// lists").
package event

import "sync"

// Flag configures an Event's return- and lifetime-semantics.
type Flag int

const (
	// FlagNoReturn ignores hook return values.
	FlagNoReturn Flag = 1 << iota
	// FlagConditional folds hook results into a pass/fail Verdict using
	// the sentinel codes in verdict.go instead of collecting an array.
	FlagConditional
	// FlagOneShot removes the whole event after its first firing.
	FlagOneShot
	// FlagHookOnce auto-defers each hook for removal after it is called
	// once, regardless of what it returns.
	FlagHookOnce
)

// HookFunc is the signature every subscriber implements. data is
// event-specific payload; the return value's meaning depends on the
// Event's flags (ignored, collected, or folded as a Verdict contributor).
type HookFunc func(data interface{}) interface{}

type hook struct {
	name     string
	fn       HookFunc
	deferred bool // removed during iteration; purged after the pass
	isNew    bool // added during iteration; skipped until the next pass
}

// Event owns an ordered list of hooks and fires them in subscription
// order. All mutation (Add*/Remove) is safe to call from inside a firing
// hook: removals are marked deferred and purged after the pass, additions
// are marked new and skipped until the next call.
type Event struct {
	mu       sync.Mutex
	name     string
	flags    Flag
	hooks    []*hook
	calling  bool
	fired    bool // for FlagOneShot
}

func New(name string, flags Flag) *Event {
	return &Event{name: name, flags: flags}
}

// NumHooks returns the count of non-deferred, non-new hooks at rest,
// matching the EVENT_HOOK_COUNT invariant.
func (e *Event) NumHooks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, h := range e.hooks {
		if !h.deferred && !h.isNew {
			n++
		}
	}
	return n
}

// AddHook appends a hook at the end of the subscriber list.
func (e *Event) AddHook(name string, fn HookFunc) {
	e.addRelative(name, fn, "", true)
}

// AddHookBefore inserts relative to a named peer hook, or at the end if
// peer is empty or not found.
func (e *Event) AddHookBefore(name string, fn HookFunc, peer string) {
	e.addRelative(name, fn, peer, false)
}

// AddHookAfter inserts immediately after a named peer hook, or at the end
// if peer is empty or not found.
func (e *Event) AddHookAfter(name string, fn HookFunc, peer string) {
	e.addRelative(name, fn, peer, true)
}

func (e *Event) addRelative(name string, fn HookFunc, peer string, after bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := &hook{name: name, fn: fn, isNew: e.calling}

	if peer == "" {
		e.hooks = append(e.hooks, h)
		return
	}

	idx := -1
	for i, existing := range e.hooks {
		if existing.name == peer {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.hooks = append(e.hooks, h)
		return
	}
	if after {
		idx++
	}
	e.hooks = append(e.hooks, nil)
	copy(e.hooks[idx+1:], e.hooks[idx:])
	e.hooks[idx] = h
}

// RemoveHook removes the named hook. During iteration it is only marked
// deferred and is purged from the list once the pass completes; the pass
// in progress walks the snapshot taken at its start, so a removed hook
// that has not yet been called in that pass is still called in it.
func (e *Event) RemoveHook(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, h := range e.hooks {
		if h.name == name && !h.deferred {
			h.deferred = true
			if !e.calling {
				e.sweepLocked()
			}
			return true
		}
	}
	return false
}

func (e *Event) sweepLocked() {
	live := e.hooks[:0]
	for _, h := range e.hooks {
		if h.deferred {
			continue
		}
		h.isNew = false
		live = append(live, h)
	}
	e.hooks = live
}

// snapshot returns the hooks eligible for this pass (excludes deferred and
// currently-new hooks) without holding the lock during calls into user
// code. A FlagOneShot event that has already fired once returns no hooks,
// matching "the whole event is removed after its first firing."
func (e *Event) snapshot() []*hook {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.flags&FlagOneShot != 0 && e.fired {
		return nil
	}

	e.calling = true

	out := make([]*hook, 0, len(e.hooks))
	for _, h := range e.hooks {
		if h.deferred || h.isNew {
			continue
		}
		out = append(out, h)
	}
	return out
}

func (e *Event) endCall(toDeferHookOnce []*hook) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calling = false

	if e.flags&FlagHookOnce != 0 {
		for _, h := range toDeferHookOnce {
			h.deferred = true
		}
	}

	if e.flags&FlagOneShot != 0 {
		e.fired = true
	}

	e.sweepLocked()
}

// Fire runs every live hook in subscription order with the given data.
// When FlagNoReturn is set the return values are discarded; otherwise
// they're collected into the returned slice, in order, skipping hooks
// that return nil.
func (e *Event) Fire(data interface{}) []interface{} {
	hooks := e.snapshot()

	var results []interface{}
	for _, h := range hooks {
		r := h.fn(data)
		if e.flags&FlagNoReturn == 0 && r != nil {
			results = append(results, r)
		}
	}

	e.endCall(hooks)
	return results
}
