// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

//go:build nats

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/pinpoint/internal/metrics"
)

// NATSRelay is the multi-replica relay backend. Events flow through a
// JetStream stream so every replica's hub sees commits made on any
// other replica.
type NATSRelay struct {
	publisher      message.Publisher
	subscriber     message.Subscriber
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	mu             sync.RWMutex
	closed         bool
	logger         watermill.LoggerAdapter
}

// NewNATSRelay creates a resilient Watermill NATS relay. The stream is
// pre-created by the StreamInitializer; message IDs are tracked for
// deduplication.
func NewNATSRelay(cfg NATSConfig, logger watermill.LoggerAdapter) (*NATSRelay, error) {
	if logger == nil {
		logger = NewWatermillLogger()
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		QueueGroupPrefix: cfg.QueueGroup,
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			DurablePrefix: cfg.DurableName,
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return &NATSRelay{
		publisher:  pub,
		subscriber: sub,
		logger:     logger,
	}, nil
}

// SetCircuitBreaker configures the circuit breaker for publish operations.
func (r *NATSRelay) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[interface{}]) {
	r.circuitBreaker = cb
}

// Publish sends a message with circuit breaker protection. The message
// UUID doubles as Nats-Msg-Id for deduplication if not already set.
func (r *NATSRelay) Publish(ctx context.Context, topic string, msg *message.Message) error {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return fmt.Errorf("relay is closed")
	}
	r.mu.RUnlock()

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	var err error
	if r.circuitBreaker != nil {
		_, err = r.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, r.publisher.Publish(topic, msg)
		})
	} else {
		err = r.publisher.Publish(topic, msg)
	}

	if err == nil {
		metrics.RelayEventsPublished.Inc()
	}
	return err
}

// PublishEvent serializes and publishes an annotation event.
func (r *NATSRelay) PublishEvent(ctx context.Context, event *AnnotationEvent) error {
	data, err := SerializeEvent(event)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	msg := message.NewMessage(event.EventID, data)
	msg.Metadata.Set("room", event.Room)
	msg.Metadata.Set("type", event.Type)

	return r.Publish(ctx, event.Topic(), msg)
}

// Subscribe returns the raw payloads published to a topic.
func (r *NATSRelay) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	msgs, err := r.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		for msg := range msgs {
			payload := msg.Payload
			msg.Ack()
			select {
			case out <- payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close shuts down both directions of the relay.
func (r *NATSRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	pubErr := r.publisher.Close()
	subErr := r.subscriber.Close()
	if pubErr != nil {
		return pubErr
	}
	return subErr
}
