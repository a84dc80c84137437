package fulfillment

import "github.com/zenstore/zenstore-backend/pkg/enums"

// successors is the adjacency table of the fulfillment pipeline. A transition
// is legal only if it appears here (or targets failed from a non-terminal
// state); there is no other path through the lifecycle.
var successors = map[enums.ZenStatus][]enums.ZenStatus{
	enums.ZenStatusPlatformNative: {
		enums.ZenStatusAwaitingWallet,
		enums.ZenStatusReadyForFulfillment,
	},
	enums.ZenStatusAwaitingWallet: {
		enums.ZenStatusReadyForFulfillment,
	},
	enums.ZenStatusReadyForFulfillment: {
		enums.ZenStatusSourcing,
	},
	enums.ZenStatusSourcing: {
		enums.ZenStatusPacking,
	},
	enums.ZenStatusPacking: {
		enums.ZenStatusReadyForDispatch,
	},
	enums.ZenStatusReadyForDispatch: {
		enums.ZenStatusDispatched,
	},
	enums.ZenStatusDispatched: {
		enums.ZenStatusShipped,
		enums.ZenStatusRTOInitiated,
		enums.ZenStatusReturned,
	},
	enums.ZenStatusShipped: {
		enums.ZenStatusOutForDelivery,
		enums.ZenStatusRTOInitiated,
		enums.ZenStatusReturned,
	},
	enums.ZenStatusOutForDelivery: {
		enums.ZenStatusDelivered,
		enums.ZenStatusRTOInitiated,
		enums.ZenStatusReturned,
	},
	enums.ZenStatusRTOInitiated: {
		enums.ZenStatusRTODelivered,
		enums.ZenStatusReturned,
	},
	enums.ZenStatusDelivered:    {},
	enums.ZenStatusRTODelivered: {},
	enums.ZenStatusReturned:     {},
	enums.ZenStatusFailed:       {},
}

// CanTransition reports whether from → to is a legal edge of the lifecycle.
func CanTransition(from, to enums.ZenStatus) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if to == enums.ZenStatusFailed {
		return !from.IsTerminal()
	}
	for _, next := range successors[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Successors returns the direct successors of the given status, excluding the
// always-available failed edge.
func Successors(from enums.ZenStatus) []enums.ZenStatus {
	next := successors[from]
	out := make([]enums.ZenStatus, len(next))
	copy(out, next)
	return out
}

// settlementControlled are statuses only the wallet settlement flow may
// enter; Advance rejects them so a charge can never be skipped.
func settlementControlled(to enums.ZenStatus) bool {
	switch to {
	case enums.ZenStatusAwaitingWallet, enums.ZenStatusReadyForFulfillment:
		return true
	default:
		return false
	}
}
