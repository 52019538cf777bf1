package mode

import (
	"github.com/palisade-irc/palisaded/internal/state"
)

// Core channel-mode bit assignments (Channel.Modes), spec §4.H's D-class
// flags plus the B/C parameterized pair.
const (
	ModeModerated uint64 = 1 << iota
	ModeSecret
	ModeNoExternal
	ModeTopicLock
	ModeInviteOnly
	ModePrivate // legacy +p, distinct from +s secret (SPEC_FULL supplemented feature)
	ModeOperOnly
	ModeRegOnly
	ModeStrip
)

// Core membership (PREFIX) bit assignments.
const (
	MemberOp uint32 = 1 << iota
	MemberVoice
)

func flagMode(letter byte, bit uint64) *Mode {
	return &Mode{
		Letter: letter,
		Class:  ClassFlag,
		Bit:    bit,
		Set: func(ch *state.Channel, by *state.Client, add bool, raw string) (bool, SetResult, error) {
			already := ch.Modes&bit != 0
			if add == already {
				return false, SetResult{}, nil
			}
			if add {
				ch.Modes |= bit
			} else {
				ch.Modes &^= bit
			}
			return false, SetResult{Applied: true}, nil
		},
		Query: func(ch *state.Channel) []QueryResult {
			if ch.Modes&bit != 0 {
				return []QueryResult{{}}
			}
			return nil
		},
	}
}

func prefixMode(letter byte, bit uint32, prefix byte, rank int) *Mode {
	return &Mode{
		Letter:    letter,
		Class:     ClassPrefix,
		MemberBit: bit,
		Prefix:    prefix,
		Rank:      rank,
		Set: func(ch *state.Channel, by *state.Client, add bool, raw string) (bool, SetResult, error) {
			var target *state.Membership
			for _, m := range ch.Members {
				if m.Client.Nick == raw {
					target = m
					break
				}
			}
			if target == nil {
				return true, SetResult{}, nil
			}
			already := target.Flags&bit != 0
			if add == already {
				return true, SetResult{Applied: false}, nil
			}
			if add {
				target.Flags |= bit
			} else {
				target.Flags &^= bit
			}
			return true, SetResult{Applied: true, Arg: raw}, nil
		},
		Query: func(ch *state.Channel) []QueryResult {
			var out []QueryResult
			for _, m := range ch.Members {
				if m.Flags&bit != 0 {
					out = append(out, QueryResult{Arg: m.Client.Nick})
				}
			}
			return out
		},
	}
}

func keyMode(letter byte) *Mode {
	return &Mode{
		Letter: letter,
		Class:  ClassParamAlways,
		Bit:    0,
		Set: func(ch *state.Channel, by *state.Client, add bool, raw string) (bool, SetResult, error) {
			if add {
				if raw == "" {
					return false, SetResult{}, nil
				}
				ch.Key = raw
				ch.Modes |= keyBit
				return true, SetResult{Applied: true, Arg: raw}, nil
			}
			if ch.Key == "" {
				return true, SetResult{}, nil
			}
			echoed := ch.Key
			ch.Key = ""
			ch.Modes &^= keyBit
			return true, SetResult{Applied: true, Arg: echoed}, nil
		},
		Query: func(ch *state.Channel) []QueryResult {
			if ch.Key != "" {
				return []QueryResult{{Arg: ch.Key}}
			}
			return nil
		},
	}
}

func limitMode(letter byte) *Mode {
	return &Mode{
		Letter: letter,
		Class:  ClassParamOnSet,
		Set: func(ch *state.Channel, by *state.Client, add bool, raw string) (bool, SetResult, error) {
			if add {
				n := atoiSafe(raw)
				if n <= 0 {
					return false, SetResult{}, nil
				}
				ch.Limit = n
				ch.Modes |= limitBit
				return true, SetResult{Applied: true, Arg: raw}, nil
			}
			if ch.Limit == 0 {
				return false, SetResult{}, nil
			}
			ch.Limit = 0
			ch.Modes &^= limitBit
			return false, SetResult{Applied: true}, nil
		},
		Query: func(ch *state.Channel) []QueryResult {
			if ch.Limit > 0 {
				return []QueryResult{{Arg: itoa(ch.Limit)}}
			}
			return nil
		},
	}
}

func banMode(letter byte, typ string) *Mode {
	return &Mode{
		Letter: letter,
		Class:  ClassList,
		Set: func(ch *state.Channel, by *state.Client, add bool, raw string) (bool, SetResult, error) {
			if raw == "" {
				return false, SetResult{}, nil
			}
			who := "*"
			if by != nil {
				who = by.Nick
			}
			if add {
				if !AddBan(ch, raw, who, typ) {
					return true, SetResult{}, ErrNoPermission
				}
				RecountAllMembers(ch)
				return true, SetResult{Applied: true, Arg: raw}, nil
			}
			if !RemoveBan(ch, raw) {
				return true, SetResult{}, nil
			}
			RecountAllMembers(ch)
			return true, SetResult{Applied: true, Arg: raw}, nil
		},
		Query: func(ch *state.Channel) []QueryResult {
			out := make([]QueryResult, 0, len(ch.Bans))
			for _, b := range ch.Bans {
				out = append(out, QueryResult{Arg: b.Nick + "!" + b.User + "@" + b.Host})
			}
			return out
		},
	}
}

// internal bits reused by keyMode/limitMode to mark "has a key"/"has a
// limit" in Channel.Modes alongside the public D-class bits.
const (
	keyBit   uint64 = 1 << 20
	limitBit uint64 = 1 << 21
)

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	return string(b)
}

// RegisterCore installs the baseline channel- and user-mode set every
// ircd configuration carries regardless of optional addon modules: the
// RFC-family D-flags, key/limit/ban, and the op/voice PREFIX pair, plus
// the bare oper user-mode bit implied by spec §6.
func RegisterCore(e *Engine) {
	e.RegisterChannelMode(flagMode('n', ModeNoExternal))
	e.RegisterChannelMode(flagMode('m', ModeModerated))
	e.RegisterChannelMode(flagMode('s', ModeSecret))
	e.RegisterChannelMode(flagMode('t', ModeTopicLock))
	e.RegisterChannelMode(flagMode('i', ModeInviteOnly))
	e.RegisterChannelMode(keyMode('k'))
	e.RegisterChannelMode(limitMode('l'))
	e.RegisterChannelMode(banMode('b', "ban"))
	e.RegisterChannelMode(prefixMode('o', MemberOp, '@', 0))
	e.RegisterChannelMode(prefixMode('v', MemberVoice, '+', 1))

	e.RegisterUserMode(&UserMode{Letter: 'o', Bit: state.UserModeOperator})
	e.RegisterUserMode(&UserMode{Letter: 'i', Bit: state.UserModeInvisible})
	e.RegisterUserMode(&UserMode{Letter: 'w', Bit: state.UserModeWallops})
	e.RegisterUserMode(&UserMode{Letter: 's', Bit: state.UserModeServerNotices})
}
