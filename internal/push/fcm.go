package push

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// FCM sends through Firebase Cloud Messaging.
type FCM struct {
	client *messaging.Client
}

func NewFCM(ctx context.Context, app *firebase.App) (*FCM, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}
	logutil.GetLogger(ctx).Info("fcm client initialized")
	return &FCM{client: client}, nil
}

func (f *FCM) Send(ctx context.Context, msg *messaging.Message) (string, error) {
	id, err := f.client.Send(ctx, msg)
	if err != nil {
		kind := classify(err)
		logutil.GetLogger(ctx).Debug("fcm send failed", zap.String("kind", kind.String()), zap.Error(err))
		return "", &Error{Kind: kind, Err: err}
	}
	return id, nil
}

func classify(err error) Kind {
	return kindFor(messaging.IsUnregistered(err), messaging.IsInvalidArgument(err), err.Error())
}

// kindFor only treats INVALID_ARGUMENT as a token failure when FCM says the
// registration token is the bad argument. Oversized payloads, reserved data
// keys and similar message errors share the same code.
func kindFor(unregistered, invalidArgument bool, message string) Kind {
	switch {
	case unregistered:
		return KindUnregistered
	case invalidArgument && strings.Contains(strings.ToLower(message), "registration token"):
		return KindInvalidToken
	}
	return KindOther
}
