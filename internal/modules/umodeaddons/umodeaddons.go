// Package umodeaddons registers the optional user-mode letters spec §6
// leaves to addon modules: +a (admin), +h (helper), +r (registered), +R
// (registered-only, reject messages from unregistered senders), and +S
// (services-admin, which like +a and +h only an operator may set).
//
// Grounded on original_source/modules/ircd/addons/umode_admin.c/.h,
// umode_helper.c/.h, umode_reg.c/.h, umode_regonly.c, and
// umode_svcadmin.c/.h, each of which registers one letter against the
// bare user-mode table; collapsed here into a single module since none
// carries per-module state beyond the bit assignment.
// The bits themselves live in internal/state next to the core ones
// (UserModeAdmin, UserModeHelper, ...) since Client.Modes is one flat
// space regardless of which module owns a given letter.
package umodeaddons

import (
	"github.com/palisade-irc/palisaded/internal/config"
	"github.com/palisade-irc/palisaded/internal/event"
	"github.com/palisade-irc/palisaded/internal/mode"
	"github.com/palisade-irc/palisaded/internal/modhost"
	"github.com/palisade-irc/palisaded/internal/state"
)

// Module installs the addon user modes into a shared mode.Engine.
type Module struct {
	Mode *mode.Engine
}

func New(m *mode.Engine) *Module { return &Module{Mode: m} }

func (m *Module) AsModule() *modhost.Module {
	return &modhost.Module{
		Name:   "umodeaddons",
		Header: modhost.Header{Major: 1, Minor: 0, Patch: 0, Version: "umodeaddons"},
		Load: func(reload bool, saved modhost.SaveData, conf []*config.Entry, h *modhost.Host) error {
			m.Mode.RegisterUserMode(&mode.UserMode{Letter: 'a', Bit: state.UserModeAdmin, OperOnly: true})
			m.Mode.RegisterUserMode(&mode.UserMode{Letter: 'h', Bit: state.UserModeHelper, OperOnly: true})
			m.Mode.RegisterUserMode(&mode.UserMode{Letter: 'r', Bit: state.UserModeRegistered})
			m.Mode.RegisterUserMode(&mode.UserMode{Letter: 'R', Bit: state.UserModeRegisteredOnly})
			m.Mode.RegisterUserMode(&mode.UserMode{Letter: 'S', Bit: state.UserModeServicesAdmin, OperOnly: true})
			m.Mode.CanSendClient.AddHook("umodeaddons.regonly", m.sendGate)
			return nil
		},
		Unload: func(reload bool) modhost.SaveData {
			m.Mode.CanSendClient.RemoveHook("umodeaddons.regonly")
			return nil
		},
	}
}

// sendGate enforces +R: a registered-only client refuses a private message
// from a sender who hasn't set +r.
func (m *Module) sendGate(data interface{}) interface{} {
	sc := data.(*mode.SendClientCheck)
	if sc.To == nil {
		return event.Neutral
	}
	if sc.To.Modes&state.UserModeRegisteredOnly == 0 {
		return event.Neutral
	}
	if sc.From != nil && sc.From.Modes&state.UserModeRegistered != 0 {
		return event.Neutral
	}
	return event.NeverOK
}
