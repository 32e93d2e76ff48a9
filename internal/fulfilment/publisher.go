// Package fulfilment publishes completed orders to RabbitMQ for downstream
// delivery. Publishing is best effort and never touches funnel state.
package fulfilment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	apperrors "github.com/Proton-105/funnel-bot/internal/errors"
	"github.com/Proton-105/funnel-bot/internal/funnel"
	"github.com/Proton-105/funnel-bot/internal/idempotency"
	"github.com/Proton-105/funnel-bot/pkg/metrics"
)

const publishTimeout = 5 * time.Second

// Channel is the part of *amqp.Channel used by the publisher.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// OrderEvent is the JSON body of a published message.
type OrderEvent struct {
	UserID      int64     `json:"user_id"`
	ChatID      int64     `json:"chat_id"`
	Package     string    `json:"pkg,omitempty"`
	OrderID     string    `json:"order_id,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	Source      string    `json:"source,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Publisher implements funnel.OrderListener.
type Publisher struct {
	ch         Channel
	exchange   string
	routingKey string
	log        *slog.Logger
}

// NewPublisher constructs a publisher writing to exchange with routingKey.
func NewPublisher(ch Channel, exchange, routingKey string, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}

	return &Publisher{
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
		log:        log,
	}
}

// OrderCompleted publishes order. Failures are logged and counted.
func (p *Publisher) OrderCompleted(ctx context.Context, order funnel.Order) {
	if err := p.Publish(ctx, order); err != nil {
		p.log.Error("publish completed order",
			slog.Int64("user_id", order.UserID),
			slog.String("order_id", order.OrderID),
			slog.Any("error", err),
		)
		metrics.RecordFunnelEvent("fulfilment", "failed")
		return
	}

	metrics.RecordFunnelEvent("fulfilment", "published")
	p.log.Info("completed order published", slog.Int64("user_id", order.UserID), slog.String("order_id", order.OrderID))
}

// Publish sends order as a persistent JSON message, retrying transient failures.
func (p *Publisher) Publish(ctx context.Context, order funnel.Order) error {
	body, err := json.Marshal(eventFromOrder(order))
	if err != nil {
		return fmt.Errorf("encode order event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID(order),
		Timestamp:    order.CompletedAt,
		Type:         "order.completed",
		Body:         body,
	}

	return amqpRetry.Do(ctx, func() error {
		publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		if err := p.ch.PublishWithContext(publishCtx, p.exchange, p.routingKey, false, false, msg); err != nil {
			return apperrors.NewExternalAPIError("amqp", err, retryable(err))
		}
		return nil
	})
}

var amqpRetry = apperrors.DefaultRetry.Named("amqp")

func eventFromOrder(order funnel.Order) OrderEvent {
	return OrderEvent{
		UserID:      order.UserID,
		ChatID:      order.ChatID,
		Package:     order.Package,
		OrderID:     order.OrderID,
		Amount:      order.Amount,
		Currency:    order.Currency,
		Source:      order.Source,
		CompletedAt: order.CompletedAt.UTC(),
	}
}

// messageID is stable for a user's completion so consumers can deduplicate.
func messageID(order funnel.Order) string {
	ref := order.OrderID
	if ref == "" {
		ref = strconv.FormatInt(order.CompletedAt.UnixNano(), 10)
	}
	return idempotency.Fingerprint("order", order.UserID, ref)
}

// retryable reports AMQP errors the broker marks as recoverable.
func retryable(err error) bool {
	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) {
		return amqpErr.Recover
	}
	return false
}
