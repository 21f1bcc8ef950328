package intake

import (
	"reflect"

	"github.com/goliatone/go-errors"
)

const (
	ErrCodeInvalidMessage   = "INVALID_MESSAGE"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
)

// Message is the contract every wizard action and gateway request implements.
type Message interface {
	Type() string
	Validate() error
}

// IsNilMessage reports whether msg is nil or a nil pointer.
func IsNilMessage(msg any) bool {
	if msg == nil {
		return true
	}
	v := reflect.ValueOf(msg)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// MessageHandler provides base validation for any message type
type MessageHandler[T any] struct{}

func (h *MessageHandler[T]) ValidateMessage(msg T) error {
	if IsNilMessage(msg) {
		return errors.New("nil message", errors.CategoryValidation).
			WithTextCode(ErrCodeInvalidMessage)
	}

	if m, ok := any(msg).(Message); ok {
		if err := m.Validate(); err != nil {
			return errors.Wrap(err, errors.CategoryValidation, m.Type()+" validation failed").
				WithTextCode(ErrCodeValidationFailed)
		}
	}

	return nil
}

// MessageType returns msg.Type() or "unknown_type" for nil messages.
func MessageType(msg any) string {
	if IsNilMessage(msg) {
		return "unknown_type"
	}
	if typed, ok := msg.(interface{ Type() string }); ok {
		return typed.Type()
	}
	return reflect.TypeOf(msg).String()
}
