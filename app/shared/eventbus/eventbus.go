package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Black-And-White-Club/rota-badges/app/shared/attr"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
)

// TopicMetadataKey lets a producer route a message when the router publishes
// with an empty topic.
const TopicMetadataKey = "topic"

// ErrMissingTopic is returned when a message has neither an explicit topic
// nor a topic in its metadata.
var ErrMissingTopic = errors.New("eventbus: message has no topic")

// EventBus is the publish/subscribe surface used by routers and handlers.
type EventBus interface {
	message.Publisher
	message.Subscriber
}

type eventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger
	closeOnce  sync.Once
	closeErr   error
}

// NewNATSEventBus connects a Watermill publisher and subscriber to NATS core
// subjects. Subscribers share a queue group so that only one replica handles
// each message.
func NewNATSEventBus(ctx context.Context, natsURL, queueGroup string, logger *slog.Logger) (EventBus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	wmLogger := watermill.NewSlogLogger(logger)
	marshaler := &nats.NATSMarshaler{}
	natsOptions := []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.Timeout(10 * time.Second),
		nc.ReconnectWait(time.Second),
		nc.Name(queueGroup),
	}
	jsConfig := nats.JetStreamConfig{Disabled: true}

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:         natsURL,
			Marshaler:   marshaler,
			NatsOptions: natsOptions,
			JetStream:   jsConfig,
		},
		wmLogger,
	)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create Watermill publisher", attr.Error(err))
		return nil, fmt.Errorf("failed to create Watermill publisher: %w", err)
	}

	subscriber, err := nats.NewSubscriber(
		nats.SubscriberConfig{
			URL:              natsURL,
			QueueGroupPrefix: queueGroup,
			SubscribersCount: 1,
			CloseTimeout:     30 * time.Second,
			Unmarshaler:      marshaler,
			NatsOptions:      natsOptions,
			JetStream:        jsConfig,
		},
		wmLogger,
	)
	if err != nil {
		publisher.Close()
		logger.ErrorContext(ctx, "Failed to create Watermill subscriber", attr.Error(err))
		return nil, fmt.Errorf("failed to create Watermill subscriber: %w", err)
	}

	logger.InfoContext(ctx, "Event bus connected", attr.String("nats_url", natsURL))
	return NewEventBus(publisher, subscriber, logger), nil
}

// NewEventBus wraps an existing publisher/subscriber pair, such as an
// in-memory GoChannel.
func NewEventBus(publisher message.Publisher, subscriber message.Subscriber, logger *slog.Logger) EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &eventBus{
		publisher:  publisher,
		subscriber: subscriber,
		logger:     logger,
	}
}

// Publish sends messages to topic. With an empty topic each message is routed
// by its TopicMetadataKey metadata.
func (eb *eventBus) Publish(topic string, msgs ...*message.Message) error {
	for _, msg := range msgs {
		if msg.UUID == "" {
			msg.UUID = watermill.NewUUID()
		}

		target := topic
		if target == "" {
			target = msg.Metadata.Get(TopicMetadataKey)
		}
		if target == "" {
			return fmt.Errorf("%w (message %s)", ErrMissingTopic, msg.UUID)
		}

		eb.logger.Debug("Publishing message",
			attr.String("topic", target),
			attr.String("message_id", msg.UUID),
		)
		if err := eb.publisher.Publish(target, msg); err != nil {
			eb.logger.Error("Failed to publish message",
				attr.String("topic", target),
				attr.Error(err),
			)
			return fmt.Errorf("failed to publish to %s: %w", target, err)
		}
	}
	return nil
}

// Subscribe returns the message stream for topic.
func (eb *eventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	messages, err := eb.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	eb.logger.InfoContext(ctx, "Subscription started", attr.String("topic", topic))
	return messages, nil
}

// Close closes both sides once. Closing the same pubsub for both sides is
// tolerated.
func (eb *eventBus) Close() error {
	eb.closeOnce.Do(func() {
		pubErr := eb.publisher.Close()
		var subErr error
		if any(eb.subscriber) != any(eb.publisher) {
			subErr = eb.subscriber.Close()
		}
		eb.closeErr = errors.Join(pubErr, subErr)
	})
	return eb.closeErr
}
