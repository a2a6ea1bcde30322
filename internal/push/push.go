package push

import (
	"context"
	"errors"

	"firebase.google.com/go/v4/messaging"
)

type Kind int

const (
	KindOther Kind = iota
	KindInvalidToken
	KindUnregistered
)

func (k Kind) String() string {
	switch k {
	case KindInvalidToken:
		return "invalid_token"
	case KindUnregistered:
		return "unregistered"
	}
	return "other"
}

// Permanent reports whether the device token will never work again.
func (k Kind) Permanent() bool {
	return k == KindInvalidToken || k == KindUnregistered
}

// Error is a classified provider failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err, KindOther if it carries none.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindOther
}

// Sender delivers one message to the device token it is addressed to and
// returns the provider message id.
type Sender interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}
