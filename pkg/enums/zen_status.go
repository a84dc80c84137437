package enums

import "fmt"

// ZenStatus tracks an order's position in the internal fulfillment pipeline
// once it is diverted from the storefront's native fulfillment.
type ZenStatus string

const (
	ZenStatusPlatformNative      ZenStatus = "platform_native"
	ZenStatusAwaitingWallet      ZenStatus = "awaiting_wallet"
	ZenStatusReadyForFulfillment ZenStatus = "ready_for_fulfillment"
	ZenStatusSourcing            ZenStatus = "sourcing"
	ZenStatusPacking             ZenStatus = "packing"
	ZenStatusReadyForDispatch    ZenStatus = "ready_for_dispatch"
	ZenStatusDispatched          ZenStatus = "dispatched"
	ZenStatusShipped             ZenStatus = "shipped"
	ZenStatusOutForDelivery      ZenStatus = "out_for_delivery"
	ZenStatusDelivered           ZenStatus = "delivered"
	ZenStatusRTOInitiated        ZenStatus = "rto_initiated"
	ZenStatusRTODelivered        ZenStatus = "rto_delivered"
	ZenStatusReturned            ZenStatus = "returned"
	ZenStatusFailed              ZenStatus = "failed"
)

var validZenStatuses = []ZenStatus{
	ZenStatusPlatformNative,
	ZenStatusAwaitingWallet,
	ZenStatusReadyForFulfillment,
	ZenStatusSourcing,
	ZenStatusPacking,
	ZenStatusReadyForDispatch,
	ZenStatusDispatched,
	ZenStatusShipped,
	ZenStatusOutForDelivery,
	ZenStatusDelivered,
	ZenStatusRTOInitiated,
	ZenStatusRTODelivered,
	ZenStatusReturned,
	ZenStatusFailed,
}

// String implements fmt.Stringer.
func (z ZenStatus) String() string {
	return string(z)
}

// IsValid reports whether the value is a known ZenStatus.
func (z ZenStatus) IsValid() bool {
	for _, candidate := range validZenStatuses {
		if candidate == z {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the lifecycle. Terminal orders
// are retained for reporting and never transition again.
func (z ZenStatus) IsTerminal() bool {
	switch z {
	case ZenStatusDelivered, ZenStatusRTODelivered, ZenStatusReturned, ZenStatusFailed:
		return true
	default:
		return false
	}
}

// IsPostDispatch reports whether the order has physically left the warehouse.
// Tracking fields are only meaningful at or after dispatch, and the return
// branches only open up from these states.
func (z ZenStatus) IsPostDispatch() bool {
	switch z {
	case ZenStatusDispatched, ZenStatusShipped, ZenStatusOutForDelivery,
		ZenStatusDelivered, ZenStatusRTOInitiated, ZenStatusRTODelivered, ZenStatusReturned:
		return true
	default:
		return false
	}
}

// ParseZenStatus converts raw input into a ZenStatus.
func ParseZenStatus(value string) (ZenStatus, error) {
	for _, candidate := range validZenStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid zen status %q", value)
}
