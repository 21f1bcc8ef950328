package intake

import (
	"context"
	"errors"
	"strings"
	"testing"

	apperrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type caseRequest struct {
	Category string
}

func (caseRequest) Type() string { return "support.case" }

func (r caseRequest) Validate() error {
	if r.Category == "" {
		return errors.New("category required")
	}
	return nil
}

func textCode(err error) string {
	var ae *apperrors.Error
	if errors.As(err, &ae) {
		return ae.TextCode
	}
	return ""
}

func TestValidateMessage(t *testing.T) {
	var h MessageHandler[*caseRequest]

	err := h.ValidateMessage(nil)
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidMessage, textCode(err))

	err = h.ValidateMessage(&caseRequest{})
	require.Error(t, err)
	assert.Equal(t, ErrCodeValidationFailed, textCode(err))
	assert.Contains(t, err.Error(), "support.case")

	assert.NoError(t, h.ValidateMessage(&caseRequest{Category: "012"}))
}

func TestMessageType(t *testing.T) {
	assert.Equal(t, "support.case", MessageType(caseRequest{}))
	assert.Equal(t, "unknown_type", MessageType(nil))
	var nilReq *caseRequest
	assert.Equal(t, "unknown_type", MessageType(nilReq))
	assert.Equal(t, "int", MessageType(42))
}

func TestFuncAdapters(t *testing.T) {
	var got string
	var c Commander[caseRequest] = CommandFunc[caseRequest](func(_ context.Context, msg caseRequest) error {
		got = msg.Category
		return nil
	})
	require.NoError(t, c.Execute(context.Background(), caseRequest{Category: "113"}))
	assert.Equal(t, "113", got)

	var q Querier[caseRequest, int] = QueryFunc[caseRequest, int](func(_ context.Context, msg caseRequest) (int, error) {
		return len(msg.Category), nil
	})
	n, err := q.Query(context.Background(), caseRequest{Category: "042"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestWrapError(t *testing.T) {
	base := errors.New("gateway down")
	err := WrapError("sentinel.lookup", "query failed", base)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, apperrors.CategoryCommand, err.Category)
	assert.Equal(t, "sentinel.lookup", err.Metadata[MetaMessageType])
	assert.Contains(t, err.Error(), "query failed")
	assert.Contains(t, err.Error(), "gateway down")

	bare := WrapError("run", "no sink", nil)
	assert.Equal(t, "no sink", bare.Message)
	assert.Equal(t, "run", bare.Metadata[MetaMessageType])
	assert.Nil(t, bare.Unwrap())
}

func TestWrapErrorKeepsTextCode(t *testing.T) {
	var m MessageHandler[*caseRequest]
	invalid := m.ValidateMessage(nil)
	require.Error(t, invalid)

	err := WrapError("support.case", "invalid message", invalid)
	assert.Equal(t, ErrCodeInvalidMessage, err.TextCode)
	assert.Equal(t, "support.case", err.Metadata[MetaMessageType])
	assert.Contains(t, err.Message, "invalid message")
}

func TestRecoverError(t *testing.T) {
	err := RecoverError("gateway.submit", func() error { panic("boom") })
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "gateway.submit"))

	assert.NoError(t, RecoverError("noop", func() error { return nil }))
}

func TestMakePanicHandler(t *testing.T) {
	var name string
	var recovered any
	var fields map[string]any
	handler := MakePanicHandler(func(funcName string, err any, _ []byte, f ...map[string]any) {
		name, recovered = funcName, err
		if len(f) > 0 {
			fields = f[0]
		}
	})

	func() {
		defer handler("listener", map[string]any{"session_id": "s1"})
		panic("listener exploded")
	}()

	assert.Equal(t, "listener", name)
	assert.Equal(t, "listener exploded", recovered)
	assert.Equal(t, "s1", fields["session_id"])
}
