package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/LinkRewards/internal/app/model"
	apprepository "github.com/sifan077/LinkRewards/internal/app/repository"
	"go.uber.org/zap"
)

var errMalformedActivity = errors.New("malformed activity")

// ActivityConsumer drains the activity stream into the database.
type ActivityConsumer struct {
	js       nats.JetStreamContext
	logger   *zap.Logger
	repo     apprepository.ActivityRepository
	stopChan chan struct{}
}

// NewActivityConsumer creates a consumer writing through repo.
func NewActivityConsumer(js nats.JetStreamContext, logger *zap.Logger, repo apprepository.ActivityRepository) *ActivityConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityConsumer{
		js:       js,
		logger:   logger,
		repo:     repo,
		stopChan: make(chan struct{}),
	}
}

// Start ensures the stream and durable consumer exist, then consumes in the background.
func (c *ActivityConsumer) Start() error {
	if _, err := c.js.StreamInfo(model.ActivityStreamName); err != nil {
		if _, err := c.js.AddStream(&nats.StreamConfig{
			Name:       model.ActivityStreamName,
			Subjects:   []string{model.ActivityStreamSubject},
			MaxBytes:   model.ActivityStreamMaxBytes,
			Duplicates: 2 * time.Minute,
		}); err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	if _, err := c.js.ConsumerInfo(model.ActivityStreamName, model.ActivityConsumerName); err != nil {
		if _, err := c.js.AddConsumer(model.ActivityStreamName, &nats.ConsumerConfig{
			Durable:   model.ActivityConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		}); err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.ActivityStreamSubject, model.ActivityConsumerName, nats.Bind(model.ActivityStreamName, model.ActivityConsumerName))
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(sub)
	return nil
}

// Stop ends the consume loop after the current fetch.
func (c *ActivityConsumer) Stop() {
	close(c.stopChan)
}

func (c *ActivityConsumer) consume(sub *nats.Subscription) {
	ctx := context.Background()
	for {
		select {
		case <-c.stopChan:
			c.logger.Info("activity consumer stopped")
			return
		default:
		}

		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && !errors.Is(err, nats.ErrTimeout) {
			c.logger.Error("failed to fetch activities", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range msgs {
			if err := c.store(ctx, msg.Data); err != nil {
				c.logger.Error("failed to store activity", zap.Error(err))
				if errors.Is(err, errMalformedActivity) {
					_ = msg.Term()
				} else {
					_ = msg.Nak()
				}
				continue
			}
			_ = msg.Ack()
		}
	}
}

func (c *ActivityConsumer) store(ctx context.Context, data []byte) error {
	var activity model.Activity
	if err := json.Unmarshal(data, &activity); err != nil {
		return fmt.Errorf("%w: %v", errMalformedActivity, err)
	}
	if activity.ID == "" || activity.Name == "" {
		return fmt.Errorf("%w: missing id or name", errMalformedActivity)
	}

	if err := c.repo.Create(ctx, &activity); err != nil {
		return fmt.Errorf("persist activity %s: %w", activity.ID, err)
	}

	c.logger.Debug("activity stored",
		zap.String("id", activity.ID),
		zap.String("name", activity.Name),
		zap.Int64("user_id", activity.UserID),
	)
	return nil
}
