package notifications

import (
	"context"
	"encoding/json"
	"errors"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/commedeschamps/Uly-Dala-Coffee/internal/services"
)

// OrderEventMailer is the slice of the mailer the dispatcher needs.
type OrderEventMailer interface {
	SendOrderStatus(ctx context.Context, event services.OrderEvent) error
}

// Dispatcher consumes order events from a Pub/Sub subscription and turns
// them into customer mail.
type Dispatcher struct {
	sub    *pubsub.Subscription
	mailer OrderEventMailer
	logger *zap.Logger
}

// NewDispatcher constructs the notification dispatcher.
func NewDispatcher(sub *pubsub.Subscription, mailer OrderEventMailer, logger *zap.Logger) (*Dispatcher, error) {
	if sub == nil {
		return nil, errors.New("dispatcher: subscription is required")
	}
	if mailer == nil {
		return nil, errors.New("dispatcher: mailer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{sub: sub, mailer: mailer, logger: logger}, nil
}

// Run blocks receiving messages until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	return d.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if d.handle(ctx, msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// handle processes one message payload. It reports whether the message
// should be acknowledged; only transient delivery failures are retried.
func (d *Dispatcher) handle(ctx context.Context, data []byte) bool {
	var event services.OrderEvent
	if err := json.Unmarshal(data, &event); err != nil {
		d.logger.Error("dropping malformed order event", zap.Error(err))
		return true
	}
	if event.RecipientEmail == "" {
		d.logger.Debug("order event without recipient",
			zap.String("order_id", event.OrderID),
			zap.String("type", event.Type))
		return true
	}
	if err := d.mailer.SendOrderStatus(ctx, event); err != nil {
		d.logger.Warn("order notification delivery failed",
			zap.String("order_id", event.OrderID),
			zap.String("type", event.Type),
			zap.Error(err))
		return false
	}
	d.logger.Info("order notification sent",
		zap.String("order_id", event.OrderID),
		zap.String("type", event.Type),
		zap.String("status", event.Status))
	return true
}

// DirectPublisher short-circuits the broker and hands order events straight
// to the mailer. It backs deployments where Pub/Sub publishing is disabled.
type DirectPublisher struct {
	mailer OrderEventMailer
	logger *zap.Logger
}

// NewDirectPublisher constructs the in-process publisher.
func NewDirectPublisher(mailer OrderEventMailer, logger *zap.Logger) (*DirectPublisher, error) {
	if mailer == nil {
		return nil, errors.New("direct publisher: mailer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectPublisher{mailer: mailer, logger: logger}, nil
}

// PublishOrderEvent delivers the event synchronously.
func (p *DirectPublisher) PublishOrderEvent(ctx context.Context, event services.OrderEvent) error {
	if event.RecipientEmail == "" {
		p.logger.Debug("order event without recipient",
			zap.String("order_id", event.OrderID),
			zap.String("type", event.Type))
		return nil
	}
	return p.mailer.SendOrderStatus(ctx, event)
}
