package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/imtahan-notifier/internal/pkg/errors"
	"github.com/xxxsen/imtahan-notifier/internal/repo"
)

type createdEvent struct {
	ID string `json:"id"`
}

// PubSubSource receives record ids from a Pub/Sub subscription, loads the
// record and hands it over. Messages are acked once handled; a record that
// no longer exists is acked and dropped.
type PubSubSource struct {
	client *pubsub.Client
	sub    string
	outbox *repo.OutboxRepo
}

func NewPubSubSource(client *pubsub.Client, subscription string, outbox *repo.OutboxRepo) *PubSubSource {
	return &PubSubSource{client: client, sub: subscription, outbox: outbox}
}

func (s *PubSubSource) Run(ctx context.Context, h Handler) error {
	sub := s.client.Subscription(s.sub)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check subscription %s: %w", s.sub, err)
	}
	if !exists {
		return fmt.Errorf("subscription %s does not exist", s.sub)
	}
	logutil.GetLogger(ctx).Info("listening for notifications", zap.String("subscription", s.sub))

	var running inflight
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		id, err := eventID(msg)
		logger := logutil.GetLogger(ctx).With(zap.String("message_id", msg.ID))
		if err != nil {
			logger.Warn("drop malformed notification event", zap.Error(err))
			msg.Ack()
			return
		}
		rec, err := s.outbox.Get(ctx, id)
		if err != nil {
			if appErr.IsNotFound(err) || appErr.IsInvalid(err) {
				logger.Warn("notification not found, drop event", zap.String("notification_id", id), zap.Error(err))
				msg.Ack()
				return
			}
			logger.Error("load notification failed", zap.String("notification_id", id), zap.Error(err))
			msg.Nack()
			return
		}
		// Receive already runs callbacks concurrently.
		running.call(ctx, h, rec)
		msg.Ack()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("receive from %s: %w", s.sub, err)
	}
	return nil
}

func eventID(msg *pubsub.Message) (string, error) {
	if id := msg.Attributes["id"]; id != "" {
		return id, nil
	}
	var ev createdEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		return "", fmt.Errorf("decode event: %w", err)
	}
	if ev.ID == "" {
		return "", fmt.Errorf("event has no id")
	}
	return ev.ID, nil
}
