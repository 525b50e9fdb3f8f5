package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/commedeschamps/Uly-Dala-Coffee/internal/services"
)

// PubSubOrderEventPublisher publishes order lifecycle events to a Pub/Sub
// topic for the notification dispatcher.
type PubSubOrderEventPublisher struct {
	topic   *pubsub.Topic
	timeout time.Duration
	marshal func(any) ([]byte, error)
}

// PublisherOption customises the publisher.
type PublisherOption func(*PubSubOrderEventPublisher)

// WithPublishTimeout bounds how long a publish may block waiting for the
// broker acknowledgement.
func WithPublishTimeout(timeout time.Duration) PublisherOption {
	return func(p *PubSubOrderEventPublisher) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// NewPubSubOrderEventPublisher constructs a Pub/Sub backed order event
// publisher.
func NewPubSubOrderEventPublisher(topic *pubsub.Topic, opts ...PublisherOption) (*PubSubOrderEventPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub order event publisher: topic is required")
	}
	publisher := &PubSubOrderEventPublisher{
		topic:   topic,
		timeout: 5 * time.Second,
		marshal: json.Marshal,
	}
	for _, opt := range opts {
		opt(publisher)
	}
	return publisher, nil
}

// PublishOrderEvent enqueues an order event on the configured topic and
// waits for the broker acknowledgement.
func (p *PubSubOrderEventPublisher) PublishOrderEvent(ctx context.Context, event services.OrderEvent) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub order event publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "type", event.Type)
	setAttr(attrs, "orderId", event.OrderID)
	setAttr(attrs, "orderNumber", event.OrderNumber)
	setAttr(attrs, "status", event.Status)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
