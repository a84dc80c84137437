package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/zenstore/zenstore-backend/pkg/config"
	"github.com/zenstore/zenstore-backend/pkg/db/models"
	"github.com/zenstore/zenstore-backend/pkg/enums"
	"github.com/zenstore/zenstore-backend/pkg/outbox"
	"github.com/zenstore/zenstore-backend/pkg/outbox/payloads"
)

func newRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{
		OrdersTopic: "orders-events",
		WalletTopic: "wallet-events",
	})
	if err != nil {
		t.Fatalf("construct registry: %v", err)
	}
	return reg
}

func outboxRow(t *testing.T, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, data any) models.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   uuid.New(),
		Payload:       envelope,
	}
}

func TestResolveDecodesTypedPayload(t *testing.T) {
	reg := newRegistry(t)
	orderID := uuid.New()
	row := outboxRow(t, enums.EventOrderWalletCharged, enums.AggregateOrder, payloads.OrderWalletChargedEvent{
		OrderID:     orderID,
		ChargePaise: 6000,
	})

	resolved, err := reg.Resolve(row)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Descriptor.Topic != "orders-events" {
		t.Fatalf("expected orders topic got %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.OrderWalletChargedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.OrderID != orderID || payload.ChargePaise != 6000 {
		t.Fatalf("payload fields lost in decode: %+v", payload)
	}
}

func TestResolveRoutesWalletEventsToWalletTopic(t *testing.T) {
	reg := newRegistry(t)
	row := outboxRow(t, enums.EventWalletCredited, enums.AggregateWalletAccount, payloads.WalletCreditedEvent{
		OperatorID:  uuid.New(),
		AmountPaise: 5000,
	})

	resolved, err := reg.Resolve(row)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Descriptor.Topic != "wallet-events" {
		t.Fatalf("expected wallet topic got %q", resolved.Descriptor.Topic)
	}
}

func TestResolveRejectsUnknownEventType(t *testing.T) {
	reg := newRegistry(t)
	row := outboxRow(t, enums.OutboxEventType("order.teleported"), enums.AggregateOrder, map[string]any{})

	_, err := reg.Resolve(row)
	var nonRetryable NonRetryableError
	if !errors.As(err, &nonRetryable) {
		t.Fatalf("expected non-retryable error got %v", err)
	}
}

func TestResolveRejectsAggregateMismatch(t *testing.T) {
	reg := newRegistry(t)
	row := outboxRow(t, enums.EventOrderDelivered, enums.AggregateWalletAccount, payloads.OrderDeliveredEvent{})

	_, err := reg.Resolve(row)
	var nonRetryable NonRetryableError
	if !errors.As(err, &nonRetryable) {
		t.Fatalf("expected non-retryable error got %v", err)
	}
}

func TestResolveRejectsEmptyPayload(t *testing.T) {
	reg := newRegistry(t)
	row := outboxRow(t, enums.EventOrderDelivered, enums.AggregateOrder, nil)

	_, err := reg.Resolve(row)
	var nonRetryable NonRetryableError
	if !errors.As(err, &nonRetryable) {
		t.Fatalf("expected non-retryable error got %v", err)
	}
}

func TestResolveRejectsMissingAggregateID(t *testing.T) {
	reg := newRegistry(t)
	row := outboxRow(t, enums.EventOrderDelivered, enums.AggregateOrder, payloads.OrderDeliveredEvent{})
	row.AggregateID = uuid.Nil

	_, err := reg.Resolve(row)
	var nonRetryable NonRetryableError
	if !errors.As(err, &nonRetryable) {
		t.Fatalf("expected non-retryable error got %v", err)
	}
}
