package boards

import (
	"errors"
	"fmt"
)

var (
	ErrBoardNotFound = errors.New("board not found")
	ErrImageIndex    = errors.New("image index out of range")
	ErrInvalidName   = errors.New("board name must not be empty")
	ErrInvalidKind   = errors.New("invalid board kind")
	ErrPrimaryExists = errors.New("a primary board already exists")

	ErrInvalidTagSource = errors.New("invalid vibes source")

	// ErrQuotaDeclined marks an operation declined by plan limits. It is an
	// upgrade signal for the caller, not a failure.
	ErrQuotaDeclined = errors.New("upgrade required")

	ErrBoardLimit = fmt.Errorf("board limit reached: %w", ErrQuotaDeclined)
	ErrImageLimit = fmt.Errorf("image limit reached: %w", ErrQuotaDeclined)
)

// IsQuotaDeclined reports whether err is a plan-limit decline.
func IsQuotaDeclined(err error) bool {
	return errors.Is(err, ErrQuotaDeclined)
}
