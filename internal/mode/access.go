package mode

import (
	"github.com/palisade-irc/palisaded/internal/event"
	"github.com/palisade-irc/palisaded/internal/state"
)

// JoinCheck is the payload for CanJoinChannel.
type JoinCheck struct {
	Client  *state.Client
	Channel *state.Channel
	Key     string
}

// SendCheck is the payload for CanSendChannel.
type SendCheck struct {
	Client  *state.Client
	Channel *state.Channel
	Text    string
}

// NickChannelCheck is the payload for CanNickChannel (can this client
// change nick while a member of this channel, e.g. +N-style restrictions
// in addon modules).
type NickChannelCheck struct {
	Client  *state.Client
	Channel *state.Channel
}

// SendClientCheck is the payload for CanSendClient (private message
// delivery, e.g. +R registered-only restrictions).
type SendClientCheck struct {
	From, To *state.Client
	Text     string
}

// SeeChannelCheck is the payload for CanSeeChannel (LIST/WHOIS visibility
// of a +s/+p channel).
type SeeChannelCheck struct {
	Viewer  *state.Client
	Channel *state.Channel
}

// NickClientCheck is the payload for CanNickClient (global nick-change
// permission, e.g. SQLINE pattern bans).
type NickClientCheck struct {
	Client  *state.Client
	NewNick string
}

// CheckJoin folds the CanJoinChannel event, returning whether c may join
// ch. A registered +b/+i/+k/+l hook should return event.NeverOK on
// failure and event.AlwaysOK for an override (accepted invite, channel
// op bypass), per spec §4.H.
func (e *Engine) CheckJoin(c *state.Client, ch *state.Channel, key string) bool {
	return e.CanJoinChannel.FireConditional(&JoinCheck{Client: c, Channel: ch, Key: key}).Pass
}

func (e *Engine) CheckSend(c *state.Client, ch *state.Channel, text string) bool {
	return e.CanSendChannel.FireConditional(&SendCheck{Client: c, Channel: ch, Text: text}).Pass
}

func (e *Engine) CheckNickInChannel(c *state.Client, ch *state.Channel) bool {
	return e.CanNickChannel.FireConditional(&NickChannelCheck{Client: c, Channel: ch}).Pass
}

func (e *Engine) CheckSendClient(from, to *state.Client, text string) bool {
	return e.CanSendClient.FireConditional(&SendClientCheck{From: from, To: to, Text: text}).Pass
}

func (e *Engine) CheckSeeChannel(viewer *state.Client, ch *state.Channel) bool {
	return e.CanSeeChannel.FireConditional(&SeeChannelCheck{Viewer: viewer, Channel: ch}).Pass
}

func (e *Engine) CheckNickChange(c *state.Client, newNick string) bool {
	return e.CanNickClient.FireConditional(&NickClientCheck{Client: c, NewNick: newNick}).Pass
}

// BanGate is the default can_join_channel hook for +b/+i/+k/+l, grounded
// on spec §4.H's "the first NEVER_OK kills the action, an ALWAYS_OK
// unconditionally permits it (e.g. channel-op override... or an accepted
// invite bypassing +b/+i/+k/+l)". Invite acceptance is handled by
// internal/modules/core's joinOne, which skips CheckJoin for an invited
// client; no hook is installed ahead of this one, and there is no
// channel-op override.
func BanGate() event.HookFunc {
	return func(data interface{}) interface{} {
		jc := data.(*JoinCheck)
		if jc.Channel.Modes&ModeInviteOnly != 0 {
			return event.NeverOK
		}
		if jc.Channel.Key != "" && jc.Channel.Key != jc.Key {
			return event.NeverOK
		}
		if jc.Channel.Limit > 0 && len(jc.Channel.Members) >= jc.Channel.Limit {
			return event.NeverOK
		}
		for _, b := range jc.Channel.Bans {
			if AsEntry(b).Matches(jc.Client) {
				return event.NeverOK
			}
		}
		return event.OK
	}
}
