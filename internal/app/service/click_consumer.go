package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/SnipURL/internal/app/model"
	"github.com/sifan077/SnipURL/internal/app/repository"
	infraprom "github.com/sifan077/SnipURL/internal/infra/prometheus"
	"go.uber.org/zap"
)

// ClickConsumer drains click events from JetStream into the database. One
// event becomes one ClickEvent row plus a counter bump on its mapping.
type ClickConsumer struct {
	js       nats.JetStreamContext
	logger   *zap.Logger
	clicks   repository.ClickEventRepository
	mappings repository.MappingRepository
	metrics  *infraprom.Metrics
}

// NewClickConsumer creates a new click event consumer.
func NewClickConsumer(js nats.JetStreamContext, logger *zap.Logger, clicks repository.ClickEventRepository, mappings repository.MappingRepository, metrics *infraprom.Metrics) *ClickConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClickConsumer{js: js, logger: logger, clicks: clicks, mappings: mappings, metrics: metrics}
}

// Start ensures the stream and durable consumer exist, then consumes in the
// background.
func (c *ClickConsumer) Start() error {
	if _, err := c.js.StreamInfo(model.ClickStreamName); err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.ClickStreamName,
			Subjects: []string{model.ClickStreamSubject},
			MaxBytes: model.ClickStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	if _, err := c.js.ConsumerInfo(model.ClickStreamName, model.ClickConsumerName); err != nil {
		_, err = c.js.AddConsumer(model.ClickStreamName, &nats.ConsumerConfig{
			Durable:   model.ClickConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.ClickStreamSubject, model.ClickConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(sub)
	return nil
}

func (c *ClickConsumer) consume(sub *nats.Subscription) {
	ctx := context.Background()
	for {
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && err != nats.ErrTimeout {
			c.logger.Error("failed to fetch messages", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			var event model.ClickEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				c.logger.Error("failed to unmarshal click event", zap.Error(err))
				c.dropped()
				msg.Ack()
				continue
			}

			if err := c.store(ctx, &event); err != nil {
				c.logger.Error("failed to store click event",
					zap.String("id", event.ID),
					zap.String("code", event.Code),
					zap.Error(err))
				msg.Nak()
				continue
			}

			c.logger.Debug("click event stored",
				zap.String("id", event.ID),
				zap.String("code", event.Code),
				zap.String("ip", event.IP),
				zap.Time("timestamp", event.Timestamp),
			)

			msg.Ack()
		}
	}
}

func (c *ClickConsumer) store(ctx context.Context, event *model.ClickEvent) error {
	// First click from this IP for the code counts as unique. Checked before
	// the insert so the event itself does not mask the lookup.
	seen, err := c.clicks.HasClickFromIP(ctx, event.Code, event.IP)
	if err != nil {
		return err
	}

	if err := c.clicks.Create(ctx, event); err != nil {
		return err
	}

	if err := c.mappings.RecordClick(ctx, event.Code, event.Timestamp, !seen); err != nil {
		// The event row is already durable; counters are denormalized hints.
		c.logger.Warn("failed to update mapping click counters",
			zap.String("code", event.Code), zap.Error(err))
	}

	if c.metrics != nil {
		c.metrics.ClicksPersisted.Inc()
	}
	return nil
}

func (c *ClickConsumer) dropped() {
	if c.metrics != nil {
		c.metrics.ClicksDropped.Inc()
	}
}
