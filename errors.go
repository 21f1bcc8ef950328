package intake

import (
	"github.com/goliatone/go-errors"
)

// MetaMessageType is the metadata key holding the failing message type.
const MetaMessageType = "message_type"

// WrapError wraps err for the message type it occurred for. A coded source
// keeps its text code so transports can still map it; a nil err yields a
// plain command error.
func WrapError(msgType, msg string, err error) *errors.Error {
	var wrapped *errors.Error
	if err == nil {
		wrapped = errors.New(msg, errors.CategoryCommand)
	} else {
		wrapped = errors.Wrap(err, errors.CategoryCommand, msg)
	}
	return wrapped.WithMetadata(map[string]any{MetaMessageType: msgType})
}
