package event

import (
	"errors"
	"fmt"
)

// ErrBusClosed is returned by Publish once the bus is closed.
var ErrBusClosed = errors.New("event bus closed")

// PublishError records which event could not be delivered.
type PublishError struct {
	Event Event
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s event %s: %v", e.Event.Type(), e.Event.ID(), e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
