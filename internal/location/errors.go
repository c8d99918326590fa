package location

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable indicates a provider answered without a usable position.
	ErrUnavailable = errors.New("location unavailable")
	// ErrUnknownProvider indicates a configured provider name has no implementation.
	ErrUnknownProvider = errors.New("unknown location provider")
)

type panicError struct {
	value any
}

func (e panicError) Error() string {
	return fmt.Sprintf("provider panic: %v", e.value)
}
