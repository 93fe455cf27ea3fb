package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sifan077/LinkRewards/internal/app/model"
)

// ActivityRecorder appends audit records.
type ActivityRecorder interface {
	Record(ctx context.Context, activity *model.Activity) error
}

// jetStreamPublisher is the slice of nats.JetStreamContext the publisher needs.
type jetStreamPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// ActivityPublisher records activities by publishing them to NATS JetStream.
// ActivityConsumer persists them.
type ActivityPublisher struct {
	js jetStreamPublisher
}

// NewActivityPublisher creates a publisher on the given JetStream context.
func NewActivityPublisher(js nats.JetStreamContext) *ActivityPublisher {
	return &ActivityPublisher{js: js}
}

// Record fills in the id and timestamp when missing and publishes the activity.
func (p *ActivityPublisher) Record(ctx context.Context, activity *model.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now()
	}

	data, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}

	if _, err := p.js.Publish(model.ActivityStreamSubject, data, nats.Context(ctx), nats.MsgId(activity.ID)); err != nil {
		return fmt.Errorf("publish activity: %w", err)
	}
	return nil
}

// newActivity builds an activity for identity with a JSON context payload.
func newActivity(identity Identity, name string, fields map[string]any) *model.Activity {
	activity := &model.Activity{
		UserID:    identity.UserID,
		UserUUID:  identity.UserUUID,
		Name:      name,
		IPAddress: identity.IP,
	}
	if len(fields) > 0 {
		if data, err := json.Marshal(fields); err == nil {
			activity.Context = string(data)
		}
	}
	return activity
}
