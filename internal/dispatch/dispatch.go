// Package dispatch implements the command dispatcher of spec §4.G:
// arity/permission-checked command registration, flood-weight
// accounting, aliasing, pre-handler hooks, and pass-through forwarding.
//
// Grounded on pkg/minicli/handler.go's Handler (name, help text, a Call
// callback, populated-at-registration derived fields) for the registry
// shape, simplified from minicli's pattern-DSL matching to IRC's
// positional min/max-arity model since client commands are space-split
// tokens, not minicli's bracketed grammar.
package dispatch

import (
	"fmt"
	"strings"

	"github.com/palisade-irc/palisaded/internal/event"
	"github.com/palisade-irc/palisaded/internal/line"
)

// Flag gates who may invoke a command.
type Flag int

const (
	FlagUnregistered Flag = 1 << iota // usable before registration completes
	FlagRegistered                    // requires a registered client
	FlagOperator                      // requires operator privilege
	FlagFoldExcess                    // extra positional args fold into the last parameter
)

// Source is implemented by whatever invoked a command — a local client
// connection or a peer link — so handlers can reply without depending on
// internal/state directly.
type Source interface {
	IsOperator() bool
	IsRegistered() bool
	Reply(numeric int, args ...string)
}

// HandlerFunc executes a command and returns the flood weight to add to
// the caller's accumulator.
type HandlerFunc func(src Source, msg *line.Message) int

// Command is one registered verb.
type Command struct {
	Name     string
	MinArgs  int
	MaxArgs  int // -1 = unbounded
	Flags    Flag
	Weight   int // base flood weight charged regardless of handler return
	Call     HandlerFunc

	PreHook *event.Event // conditional event fired before Call; NEVER_OK short-circuits
}

// numeric error codes used by the dispatcher itself; concrete ircd
// modules register the richer RPL_FMT-backed text.
const (
	ErrUnknownCommand  = 421
	ErrNeedMoreParams  = 461
	ErrNotRegistered   = 451
	ErrNoPrivileges    = 481
)

// Dispatcher owns the command registry, alias table, and numeric reply
// formatting table.
type Dispatcher struct {
	commands map[string]*Command
	aliases  map[string]string

	// numerics maps a connection class name to its message-set overrides,
	// so operator connections can receive richer wording (spec §4.G,
	// "RPL_FMT looks up a per-connection-class message set").
	numerics map[string]map[int]string
	fallback map[int]string

	// PassThrough is called with the name of a command that has no local
	// registration; returning true means it forwarded the command and no
	// ErrUnknownCommand reply is sent. nil means no forwarding.
	PassThrough func(target string) (forward bool)
}

func New() *Dispatcher {
	return &Dispatcher{
		commands: map[string]*Command{},
		aliases:  map[string]string{},
		numerics: map[string]map[int]string{},
		fallback: map[int]string{},
	}
}

// Register adds a command, replacing any existing registration of the
// same name (a module reload re-registers its commands).
func (d *Dispatcher) Register(c *Command) {
	d.commands[strings.ToUpper(c.Name)] = c
}

// Unregister removes a command, used when a module unloads.
func (d *Dispatcher) Unregister(name string) {
	delete(d.commands, strings.ToUpper(name))
}

// Alias maps from to an existing command name.
func (d *Dispatcher) Alias(from, to string) {
	d.aliases[strings.ToUpper(from)] = strings.ToUpper(to)
}

// RegisterNumeric sets the default wording for a numeric, used when no
// class-specific override exists.
func (d *Dispatcher) RegisterNumeric(code int, format string) {
	d.fallback[code] = format
}

// RegisterClassNumeric overrides a numeric's wording for one connection
// class (spec §4.G).
func (d *Dispatcher) RegisterClassNumeric(class string, code int, format string) {
	m, ok := d.numerics[class]
	if !ok {
		m = map[int]string{}
		d.numerics[class] = m
	}
	m[code] = format
}

// Format resolves a numeric's message-set entry for the given class,
// falling back to the default set, then to a generic placeholder.
func (d *Dispatcher) Format(class string, code int) string {
	if m, ok := d.numerics[class]; ok {
		if f, ok := m[code]; ok {
			return f
		}
	}
	if f, ok := d.fallback[code]; ok {
		return f
	}
	return fmt.Sprintf("%d unspecified", code)
}

// resolve follows at most one alias hop and returns the target Command.
func (d *Dispatcher) resolve(name string) (*Command, bool) {
	name = strings.ToUpper(name)
	if target, ok := d.aliases[name]; ok {
		name = target
	}
	c, ok := d.commands[name]
	return c, ok
}

// Dispatch verifies arity and permission flags, runs any pre-hook, and
// invokes the handler, returning the flood weight to charge. An error
// means the caller already received a numeric reply and no handler ran.
func (d *Dispatcher) Dispatch(src Source, msg *line.Message) (weight int, err error) {
	cmd, ok := d.resolve(msg.Command)
	if !ok {
		if d.PassThrough != nil {
			if d.PassThrough(msg.Command) {
				return 0, nil
			}
		}
		src.Reply(ErrUnknownCommand, msg.Command)
		return 0, fmt.Errorf("unknown command %q", msg.Command)
	}

	if cmd.Flags&FlagRegistered != 0 && !src.IsRegistered() {
		src.Reply(ErrNotRegistered)
		return 0, fmt.Errorf("command %q requires registration", cmd.Name)
	}
	if cmd.Flags&FlagOperator != 0 && !src.IsOperator() {
		src.Reply(ErrNoPrivileges)
		return 0, fmt.Errorf("command %q requires operator privilege", cmd.Name)
	}

	args := msg.Args
	if len(args) < cmd.MinArgs {
		src.Reply(ErrNeedMoreParams, cmd.Name)
		return 0, fmt.Errorf("command %q needs at least %d args, got %d", cmd.Name, cmd.MinArgs, len(args))
	}
	if cmd.MaxArgs >= 0 && len(args) > cmd.MaxArgs {
		if cmd.Flags&FlagFoldExcess != 0 {
			folded := append([]string{}, args[:cmd.MaxArgs-1]...)
			folded = append(folded, strings.Join(args[cmd.MaxArgs-1:], " "))
			msg = &line.Message{Prefix: msg.Prefix, PrefixKind: msg.PrefixKind, Command: msg.Command, Args: folded, HasTrailing: msg.HasTrailing}
		} else {
			msg = &line.Message{Prefix: msg.Prefix, PrefixKind: msg.PrefixKind, Command: msg.Command, Args: args[:cmd.MaxArgs], HasTrailing: msg.HasTrailing}
		}
	}

	if cmd.PreHook != nil {
		verdict := cmd.PreHook.FireConditional(msg)
		if !verdict.Pass {
			return cmd.Weight, nil
		}
	}

	w := cmd.Call(src, msg)
	return cmd.Weight + w, nil
}

// Names returns every registered command name.
func (d *Dispatcher) Names() []string {
	out := make([]string, 0, len(d.commands))
	for n := range d.commands {
		out = append(out, n)
	}
	return out
}
