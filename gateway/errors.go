package gateway

import (
	"fmt"

	apperrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-intake/flow"
)

const ErrCodeGatewayFailed = "INTAKE_GATEWAY_FAILED"

var ErrGatewayFailed = apperrors.New("gateway request failed", apperrors.CategoryExternal).
	WithTextCode(ErrCodeGatewayFailed)

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: unexpected status %d: %s", e.Operation, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Operation, e.StatusCode)
}

// Failed wraps a gateway error in ErrGatewayFailed.
func Failed(operation string, source error) error {
	return flow.NewRuntimeError(ErrGatewayFailed, operation+" failed", source, map[string]any{
		"operation": operation,
	})
}
