package service

import (
	"context"
	"strconv"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/imtahan-notifier/internal/model"
	"github.com/xxxsen/imtahan-notifier/internal/push"
	"github.com/xxxsen/imtahan-notifier/internal/repo"
)

const noTokenError = "No FCM token"

type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomeNoToken   Outcome = "no_token"
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
)

type MessageOptions struct {
	DefaultTitle     string
	AndroidChannelID string
	ClickAction      string
	Badge            int
}

func (o MessageOptions) withDefaults() MessageOptions {
	if o.DefaultTitle == "" {
		o.DefaultTitle = "İmtahan+"
	}
	if o.AndroidChannelID == "" {
		o.AndroidChannelID = "high_importance_channel"
	}
	if o.ClickAction == "" {
		o.ClickAction = "FLUTTER_NOTIFICATION_CLICK"
	}
	if o.Badge <= 0 {
		o.Badge = 1
	}
	return o
}

// Dispatcher delivers one outbox record and writes its terminal state.
type Dispatcher struct {
	outbox   *repo.OutboxRepo
	profiles *repo.ProfileRepo
	sender   push.Sender
	opts     MessageOptions
	now      func() time.Time
}

func NewDispatcher(outbox *repo.OutboxRepo, profiles *repo.ProfileRepo, sender push.Sender, opts MessageOptions, now func() time.Time) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		outbox:   outbox,
		profiles: profiles,
		sender:   sender,
		opts:     opts.withDefaults(),
		now:      now,
	}
}

// Dispatch never returns an error: every failure ends in a terminal write or
// a log line. There is no retry; a new record has to be queued instead.
// Once a send has started, the terminal write and token cleanup run even if
// ctx is cancelled, so a shutdown cannot leave a delivered record unsent.
func (d *Dispatcher) Dispatch(ctx context.Context, rec *model.OutboxRecord) Outcome {
	writeCtx := context.WithoutCancel(ctx)
	logger := logutil.GetLogger(ctx).With(
		zap.String("notification_id", rec.ID),
		zap.String("user_id", rec.RecipientID),
	)
	if rec.Sent {
		logger.Debug("notification already sent, skip")
		return OutcomeSkipped
	}
	if rec.DeviceToken == "" {
		logger.Warn("notification has no device token")
		d.markFailed(writeCtx, logger, rec.ID, noTokenError)
		return OutcomeNoToken
	}

	msgID, err := d.sender.Send(ctx, BuildMessage(rec, d.now(), d.opts))
	if err != nil {
		kind := push.KindOf(err)
		logger.Error("send notification failed", zap.String("kind", kind.String()), zap.Error(err))
		d.markFailed(writeCtx, logger, rec.ID, err.Error())
		if kind.Permanent() && rec.RecipientID != "" {
			if err := d.profiles.ClearDeviceToken(writeCtx, rec.RecipientID); err != nil {
				logger.Error("clear device token failed", zap.Error(err))
			} else {
				logger.Info("device token cleared")
			}
		}
		return OutcomeFailed
	}

	logger.Info("notification sent", zap.String("message_id", msgID))
	applied, err := d.outbox.MarkDelivered(writeCtx, rec.ID, msgID)
	if err != nil {
		logger.Error("mark notification delivered failed", zap.Error(err))
	} else if !applied {
		logger.Warn("notification was already terminal, delivery result not recorded")
	}
	return OutcomeDelivered
}

func (d *Dispatcher) markFailed(ctx context.Context, logger *zap.Logger, id, reason string) {
	applied, err := d.outbox.MarkFailed(ctx, id, reason)
	if err != nil {
		logger.Error("mark notification failed failed", zap.Error(err))
		return
	}
	if !applied {
		logger.Warn("notification was already terminal, failure not recorded")
	}
}

// BuildMessage turns a record into the provider message. System data keys
// override caller-supplied keys of the same name.
func BuildMessage(rec *model.OutboxRecord, now time.Time, opts MessageOptions) *messaging.Message {
	opts = opts.withDefaults()
	title := rec.Title
	if title == "" {
		title = opts.DefaultTitle
	}
	data := make(map[string]string, len(rec.Data)+3)
	for k, v := range rec.Data {
		data[k] = v
	}
	data["notificationId"] = rec.ID
	data["userId"] = rec.RecipientID
	data["timestamp"] = strconv.FormatInt(now.UnixMilli(), 10)

	badge := opts.Badge
	return &messaging.Message{
		Token: rec.DeviceToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  rec.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:       "default",
				ChannelID:   opts.AndroidChannelID,
				ClickAction: opts.ClickAction,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
					Badge: &badge,
				},
			},
		},
	}
}
