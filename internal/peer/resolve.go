package peer

import (
	"github.com/palisade-irc/palisaded/internal/mode"
	"github.com/palisade-irc/palisaded/internal/state"
)

// TSAction is the outcome of ResolveChannelTS, spec §4.J's conflict
// resolver table.
type TSAction int

const (
	// TSAccept applies the incoming modes as-is.
	TSAccept TSAction = iota
	// TSReject discards every mode in the incoming message; the peer
	// will self-correct once it catches up on the TS.
	TSReject
	// TSResetLocal strips every channel mode and every member's prefix
	// bits, adopts the peer's timestamp, then applies the incoming
	// modes.
	TSResetLocal
)

// ResolveChannelTS implements spec §4.J's table:
//
//	peer lacks TS and is not master  -> set T_ours = 0; accept modes
//	T_theirs > T_ours                -> reject all modes
//	T_theirs == T_ours               -> apply modes
//	T_theirs < T_ours                -> reset local modes; adopt T_theirs; apply
//
// peerHasTS is false for a non-TS peer link (a legacy dialect lacking
// CapTS); isMaster distinguishes the configured "master" link that wins
// ties against non-TS peers, spec-derived from §4.J's TS table (no
// uplink-authority file survived the retrieval pack for this case).
func ResolveChannelTS(ch *state.Channel, peerHasTS bool, isMaster bool, theirTS int64) TSAction {
	if !peerHasTS && !isMaster {
		ch.Created = 0
		return TSAccept
	}
	switch {
	case theirTS > ch.Created:
		return TSReject
	case theirTS == ch.Created:
		return TSAccept
	default:
		return TSResetLocal
	}
}

// ApplyTSResult performs the side effects of a TSResetLocal/TSAccept
// decision: clearing channel modes and member prefixes when resetting,
// and always adopting the minimum timestamp per spec §8's monotonicity
// law ("ch.created = min(ch.created, T_theirs)").
//
// It returns the list of memberships that lost a prefix bit, so the
// caller can emit the implied "-o"/"-v" cascade to local members and
// non-TS peers (spec §4.J, "Local mode-reset emits the implied -mode
// cascade... TS peers infer it from the adopted timestamp").
func ApplyTSResult(ch *state.Channel, action TSAction, theirTS int64) []*state.Membership {
	var stripped []*state.Membership
	if action == TSResetLocal {
		ch.Modes = 0
		ch.Key = ""
		ch.Limit = 0
		ch.Bans = nil
		for _, m := range ch.Members {
			if m.Flags != 0 {
				m.Flags = 0
				stripped = append(stripped, m)
			}
		}
	}
	if action == TSResetLocal {
		ch.Created = theirTS
	}
	return stripped
}

// RecountAfterReset recomputes ban-hit caches after a TS reset cleared
// the ban list, matching mode.RecountAllMembers's contract.
func RecountAfterReset(ch *state.Channel) {
	mode.RecountAllMembers(ch)
}

// CollisionAction is the outcome of ResolveNickCollision, spec §4.J.
type CollisionAction int

const (
	// CollideBoth kills both K and U, in both directions.
	CollideBoth CollisionAction = iota
	// DropIncoming silently drops U; if this was a rename (not a fresh
	// introduction) a kill for U is sent.
	DropIncoming
	// DropExisting kills K locally and toward all peers; U is accepted.
	DropExisting
	// ReplaceUnregistered drops the local unregistered K; U wins outright
	// (no kill traffic, since K never completed registration).
	ReplaceUnregistered
)

// ResolveNickCollision implements spec §4.J's table for a NICK collision
// between local known K and incoming unknown U. kRegistered is false
// when K is a local client that has not completed NICK+USER
// registration.
func ResolveNickCollision(kRegistered bool, kLocal bool, kTS, uTS int64) CollisionAction {
	if kLocal && !kRegistered {
		return ReplaceUnregistered
	}
	if kTS == 0 || uTS == 0 || kTS == uTS {
		return CollideBoth
	}
	if kTS < uTS {
		return DropIncoming
	}
	return DropExisting
}
