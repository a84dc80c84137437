package fulfillment

import (
	"testing"

	"github.com/zenstore/zenstore-backend/pkg/enums"
)

func TestCanTransitionHappyPath(t *testing.T) {
	path := []enums.ZenStatus{
		enums.ZenStatusPlatformNative,
		enums.ZenStatusAwaitingWallet,
		enums.ZenStatusReadyForFulfillment,
		enums.ZenStatusSourcing,
		enums.ZenStatusPacking,
		enums.ZenStatusReadyForDispatch,
		enums.ZenStatusDispatched,
		enums.ZenStatusShipped,
		enums.ZenStatusOutForDelivery,
		enums.ZenStatusDelivered,
	}
	for i := 0; i < len(path)-1; i++ {
		if !CanTransition(path[i], path[i+1]) {
			t.Fatalf("expected %s -> %s to be legal", path[i], path[i+1])
		}
	}
}

func TestCanTransitionRejectsSkips(t *testing.T) {
	illegal := []struct{ from, to enums.ZenStatus }{
		{enums.ZenStatusPlatformNative, enums.ZenStatusSourcing},
		{enums.ZenStatusReadyForFulfillment, enums.ZenStatusPacking},
		{enums.ZenStatusSourcing, enums.ZenStatusDispatched},
		{enums.ZenStatusPacking, enums.ZenStatusShipped},
		{enums.ZenStatusDispatched, enums.ZenStatusDelivered},
		{enums.ZenStatusShipped, enums.ZenStatusDispatched},
		{enums.ZenStatusDelivered, enums.ZenStatusReturned},
	}
	for _, tt := range illegal {
		if CanTransition(tt.from, tt.to) {
			t.Fatalf("expected %s -> %s to be illegal", tt.from, tt.to)
		}
	}
}

func TestCanTransitionReturnPaths(t *testing.T) {
	for _, from := range []enums.ZenStatus{
		enums.ZenStatusDispatched,
		enums.ZenStatusShipped,
		enums.ZenStatusOutForDelivery,
	} {
		if !CanTransition(from, enums.ZenStatusRTOInitiated) {
			t.Fatalf("expected %s to allow rto_initiated", from)
		}
		if !CanTransition(from, enums.ZenStatusReturned) {
			t.Fatalf("expected %s to allow returned", from)
		}
	}
	if !CanTransition(enums.ZenStatusRTOInitiated, enums.ZenStatusRTODelivered) {
		t.Fatal("expected rto_initiated -> rto_delivered")
	}
	if !CanTransition(enums.ZenStatusRTOInitiated, enums.ZenStatusReturned) {
		t.Fatal("expected rto_initiated -> returned")
	}
}

func TestFailedReachableFromAnyNonTerminal(t *testing.T) {
	for status := range successors {
		can := CanTransition(status, enums.ZenStatusFailed)
		if status.IsTerminal() {
			if can {
				t.Fatalf("terminal status %s must not fail", status)
			}
			continue
		}
		if !can {
			t.Fatalf("non-terminal status %s must allow failed", status)
		}
	}
}

func TestTerminalStatusesHaveNoSuccessors(t *testing.T) {
	for _, status := range []enums.ZenStatus{
		enums.ZenStatusDelivered,
		enums.ZenStatusRTODelivered,
		enums.ZenStatusReturned,
		enums.ZenStatusFailed,
	} {
		if next := Successors(status); len(next) != 0 {
			t.Fatalf("terminal status %s has successors %v", status, next)
		}
	}
}

func TestCanTransitionRejectsUnknownStatus(t *testing.T) {
	if CanTransition(enums.ZenStatus("teleported"), enums.ZenStatusFailed) {
		t.Fatal("unknown source status must be rejected")
	}
	if CanTransition(enums.ZenStatusSourcing, enums.ZenStatus("teleported")) {
		t.Fatal("unknown target status must be rejected")
	}
}

func TestSettlementControlledStatuses(t *testing.T) {
	if !settlementControlled(enums.ZenStatusAwaitingWallet) {
		t.Fatal("awaiting_wallet is settlement controlled")
	}
	if !settlementControlled(enums.ZenStatusReadyForFulfillment) {
		t.Fatal("ready_for_fulfillment is settlement controlled")
	}
	if settlementControlled(enums.ZenStatusSourcing) {
		t.Fatal("sourcing is operator controlled")
	}
}
