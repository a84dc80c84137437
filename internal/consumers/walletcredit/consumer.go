package walletcredit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/zenstore/zenstore-backend/internal/autoresume"
	"github.com/zenstore/zenstore-backend/pkg/enums"
	"github.com/zenstore/zenstore-backend/pkg/logger"
	"github.com/zenstore/zenstore-backend/pkg/outbox"
	"github.com/zenstore/zenstore-backend/pkg/outbox/payloads"
)

const consumerName = "wallet-credit"

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type operatorScanner interface {
	ScanOperator(ctx context.Context, operatorID uuid.UUID) (err error)
}

// Consumer reacts to wallet_credited events by draining the credited
// operator's parked order queue. Redis-based idempotency keeps redelivered
// messages from re-running a scan that already happened.
type Consumer struct {
	scanner operatorScanner
	manager idempotencyChecker
	logg    *logger.Logger
}

// NewConsumer builds a wallet-credit consumer.
func NewConsumer(scanner operatorScanner, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if scanner == nil {
		return nil, fmt.Errorf("scanner required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		scanner: scanner,
		manager: manager,
		logg:    logg,
	}, nil
}

// Process handles one decoded outbox envelope from the wallet topic.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	if eventType != enums.EventWalletCredited {
		c.logg.Info(logCtx, "event not handled by wallet-credit consumer")
		return nil
	}

	if envelope.EventID == "" {
		return fmt.Errorf("event id missing")
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return fmt.Errorf("parse event id: %w", err)
	}

	already, err := c.manager.CheckAndMarkProcessed(ctx, consumerName, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	var payload payloads.WalletCreditedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to decode wallet credited payload", err)
		_ = c.manager.Delete(ctx, consumerName, eventID)
		return err
	}
	if payload.OperatorID == uuid.Nil {
		c.logg.Error(logCtx, "wallet credited payload missing operator", nil)
		_ = c.manager.Delete(ctx, consumerName, eventID)
		return fmt.Errorf("operator id missing")
	}

	if err := c.scanner.ScanOperator(ctx, payload.OperatorID); err != nil {
		c.logg.Error(logCtx, "failed to resume parked orders after credit", err)
		_ = c.manager.Delete(ctx, consumerName, eventID)
		return err
	}

	c.logg.Info(c.logg.WithField(logCtx, "operator_id", payload.OperatorID.String()),
		"parked orders resumed after wallet credit")
	return nil
}

var _ operatorScanner = (*autoresume.Scanner)(nil)
