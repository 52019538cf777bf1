// Package cmodeaddons registers the optional channel-mode letters spec
// §4.H leaves to addon modules: +O (operator-only join), +p (legacy
// private, distinct from +s secret per SPEC_FULL's supplemented feature),
// and +S (strip control/color codes from channel messages).
//
// Grounded on original_source/modules/ircd/addons/cmode_operonly.c for
// the join-time-gate shape and original_source/modules/ircd/addons/
// cmode_strip.c for a mode whose effect is a message transform rather
// than a join/query gate.
package cmodeaddons

import (
	"strings"

	"github.com/palisade-irc/palisaded/internal/config"
	"github.com/palisade-irc/palisaded/internal/event"
	"github.com/palisade-irc/palisaded/internal/mode"
	"github.com/palisade-irc/palisaded/internal/modhost"
	"github.com/palisade-irc/palisaded/internal/state"
)

type Module struct {
	Mode *mode.Engine
}

func New(m *mode.Engine) *Module { return &Module{Mode: m} }

func (m *Module) AsModule() *modhost.Module {
	return &modhost.Module{
		Name:   "cmodeaddons",
		Header: modhost.Header{Major: 1, Minor: 0, Patch: 0, Version: "cmodeaddons"},
		Load: func(reload bool, saved modhost.SaveData, conf []*config.Entry, h *modhost.Host) error {
			m.Mode.RegisterChannelMode(flagMode('O', mode.ModeOperOnly))
			m.Mode.RegisterChannelMode(flagMode('p', mode.ModePrivate))
			m.Mode.RegisterChannelMode(flagMode('S', mode.ModeStrip))
			m.Mode.CanJoinChannel.AddHookAfter("cmodeaddons.operonly", m.joinGate, "core.bangate")
			return nil
		},
		Unload: func(reload bool) modhost.SaveData {
			m.Mode.UnregisterChannelMode('O')
			m.Mode.UnregisterChannelMode('p')
			m.Mode.UnregisterChannelMode('S')
			m.Mode.CanJoinChannel.RemoveHook("cmodeaddons.operonly")
			return nil
		},
	}
}

func flagMode(letter byte, bit uint64) *mode.Mode {
	return &mode.Mode{
		Letter: letter,
		Class:  mode.ClassFlag,
		Bit:    bit,
		Set: func(ch *state.Channel, by *state.Client, add bool, raw string) (bool, mode.SetResult, error) {
			already := ch.Modes&bit != 0
			if add == already {
				return false, mode.SetResult{}, nil
			}
			if add {
				ch.Modes |= bit
			} else {
				ch.Modes &^= bit
			}
			return false, mode.SetResult{Applied: true}, nil
		},
		Query: func(ch *state.Channel) []mode.QueryResult {
			if ch.Modes&bit != 0 {
				return []mode.QueryResult{{}}
			}
			return nil
		},
	}
}

func (m *Module) joinGate(data interface{}) interface{} {
	jc := data.(*mode.JoinCheck)
	if jc.Channel.Modes&mode.ModeOperOnly == 0 {
		return event.Neutral
	}
	if jc.Client.Modes&state.UserModeOperator != 0 {
		return event.Neutral
	}
	return event.NeverOK
}

// Strip removes mIRC-style color and formatting control codes from text
// when ch has +S set, applied by internal/modules/core before fan-out.
func Strip(ch *state.Channel, text string) string {
	if ch.Modes&mode.ModeStrip == 0 {
		return text
	}
	var b strings.Builder
	skipDigits, colorPart := 0, 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case 0x02, 0x1d, 0x1f, 0x16, 0x0f: // bold, italic, underline, reverse, reset
			continue
		case 0x03: // color, optionally followed by up to two digit fg[,bg]
			skipDigits, colorPart = 2, 1
			continue
		}
		if skipDigits > 0 && c >= '0' && c <= '9' {
			skipDigits--
			continue
		}
		if colorPart == 1 && skipDigits < 2 && c == ',' && i+1 < len(text) && text[i+1] >= '0' && text[i+1] <= '9' {
			skipDigits, colorPart = 2, 2
			continue
		}
		skipDigits, colorPart = 0, 0
		b.WriteByte(c)
	}
	return b.String()
}
