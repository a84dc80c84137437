package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/zenstore/zenstore-backend/pkg/enums"
	"github.com/zenstore/zenstore-backend/pkg/logger"
	"github.com/zenstore/zenstore-backend/pkg/outbox"
)

// envelopeHandler processes one decoded outbox envelope.
type envelopeHandler interface {
	Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error
}

// Service pulls wallet events off the subscription and hands them to the
// wallet-credit consumer. Malformed messages are acked and logged rather than
// redelivered forever; handler failures nack so Pub/Sub retries.
type Service struct {
	subscription *gcppubsub.Subscriber
	handler      envelopeHandler
	logg         *logger.Logger
}

func NewService(subscription *gcppubsub.Subscriber, handler envelopeHandler, logg *logger.Logger) (*Service, error) {
	if subscription == nil {
		return nil, errors.New("wallet subscription is required")
	}
	if handler == nil {
		return nil, errors.New("envelope handler is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		subscription: subscription,
		handler:      handler,
		logg:         logg,
	}, nil
}

type processResult struct {
	nack bool
}

// Run consumes wallet messages until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if s.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	fields := map[string]any{
		"message_id": msg.ID,
	}
	logCtx := s.logg.WithFields(ctx, fields)

	eventType, envelope, err := decodeMessage(msg)
	if err != nil {
		fields["error"] = err.Error()
		s.logg.Warn(s.logg.WithFields(ctx, fields), "invalid wallet event message")
		return processResult{}
	}

	fields["event_id"] = envelope.EventID
	fields["event_type"] = eventType
	logCtx = s.logg.WithFields(ctx, fields)

	if err := s.handler.Process(logCtx, eventType, *envelope); err != nil {
		s.logg.Error(logCtx, "wallet event handler error", err)
		return processResult{nack: true}
	}
	return processResult{}
}

func decodeMessage(msg *gcppubsub.Message) (enums.OutboxEventType, *outbox.PayloadEnvelope, error) {
	rawType := msg.Attributes["event_type"]
	eventType, err := enums.ParseOutboxEventType(rawType)
	if err != nil {
		return "", nil, fmt.Errorf("parse event type: %w", err)
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		return "", nil, fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.EventID == "" {
		return "", nil, errors.New("envelope missing event id")
	}
	return eventType, &envelope, nil
}
