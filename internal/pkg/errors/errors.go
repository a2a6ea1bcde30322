package errors

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalid        = errors.New("invalid")
	ErrUserIDRequired = errors.New("user id required")
	ErrUserNotFound   = errors.New("user not found")
	ErrNoToken        = errors.New("user has no device token")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}
