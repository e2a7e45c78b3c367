package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeliveryError(t *testing.T) {
	cause := errors.New("script raised")
	typ := NewType("test.event.FailingEvent", Root)
	err := &DeliveryError{Type: typ, Handler: "greet/onJoin", Err: cause}

	assert.Equal(t, "could not pass event FailingEvent to greet/onJoin: script raised", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestPanicError(t *testing.T) {
	err := &PanicError{Value: "boom"}

	assert.Equal(t, "handler panic: boom", err.Error())
	assert.ErrorIs(t, err, ErrHandlerPanic)
	assert.NotErrorIs(t, err, ErrNilHandler)
}
