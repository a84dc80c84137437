package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregateWalletAccount OutboxAggregateType = "wallet_account"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateWalletAccount,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderIngested       OutboxEventType = "order_ingested"
	EventOrderWalletCharged  OutboxEventType = "order_wallet_charged"
	EventOrderAwaitingWallet OutboxEventType = "order_awaiting_wallet"
	EventOrderDelivered      OutboxEventType = "order_delivered"
	EventOrderReturned       OutboxEventType = "order_returned"
	EventOrderRTODelivered   OutboxEventType = "order_rto_delivered"
	EventOrderFailed         OutboxEventType = "order_failed"
	EventWalletCredited      OutboxEventType = "wallet_credited"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderIngested,
	EventOrderWalletCharged,
	EventOrderAwaitingWallet,
	EventOrderDelivered,
	EventOrderReturned,
	EventOrderRTODelivered,
	EventOrderFailed,
	EventWalletCredited,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
