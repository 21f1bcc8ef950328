package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	apperrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-intake"
	"github.com/goliatone/go-intake/flow"
	"github.com/goliatone/go-intake/gateway"
	"github.com/goliatone/go-intake/session"
)

const (
	ErrCodeDebugDisabled = "INTAKE_DEBUG_DISABLED"
	ErrCodeBadRequest    = "INTAKE_BAD_REQUEST"

	errCodeInternal = "INTAKE_INTERNAL"
)

var (
	ErrDebugDisabled = apperrors.New("debug state override is disabled", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeDebugDisabled)
	ErrBadRequest = apperrors.New("malformed request body", apperrors.CategoryBadInput).
			WithTextCode(ErrCodeBadRequest)
)

// ErrorMapping is the HTTP rendering of one runtime error code.
type ErrorMapping struct {
	Code       string
	HTTPStatus int
}

// ErrorEnvelope is the JSON body of every failed request.
type ErrorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MapError maps a runtime error code to its HTTP status.
func MapError(err error) ErrorMapping {
	code := strings.TrimSpace(flow.ErrorCode(err))

	switch code {
	case flow.ErrCodeUnknownAction, flow.ErrCodeMissingProfile, ErrCodeDebugDisabled, ErrCodeBadRequest:
		return ErrorMapping{Code: code, HTTPStatus: http.StatusBadRequest}
	case flow.ErrCodeInvalidActionPayload, intake.ErrCodeInvalidMessage, intake.ErrCodeValidationFailed:
		return ErrorMapping{Code: code, HTTPStatus: http.StatusUnprocessableEntity}
	case session.ErrCodeSessionNotFound:
		return ErrorMapping{Code: code, HTTPStatus: http.StatusNotFound}
	case session.ErrCodeVersionConflict, flow.ErrCodeHookRejected:
		return ErrorMapping{Code: code, HTTPStatus: http.StatusConflict}
	case gateway.ErrCodeGatewayFailed:
		return ErrorMapping{Code: code, HTTPStatus: http.StatusBadGateway}
	default:
		return ErrorMapping{Code: errCodeInternal, HTTPStatus: http.StatusInternalServerError}
	}
}

// HTTPStatusForError returns the mapped HTTP status code for err.
func HTTPStatusForError(err error) int {
	return MapError(err).HTTPStatus
}

func writeJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	mapping := MapError(err)
	if mapping.HTTPStatus >= http.StatusInternalServerError {
		s.logger.Error("request failed method=%s path=%s code=%s: %v", r.Method, r.URL.Path, mapping.Code, err)
	} else {
		s.logger.Debug("request rejected method=%s path=%s code=%s: %v", r.Method, r.URL.Path, mapping.Code, err)
	}
	if encErr := writeJSON(w, mapping.HTTPStatus, ErrorEnvelope{Code: mapping.Code, Message: err.Error()}); encErr != nil {
		s.logger.Error("error response encode failed: %v", encErr)
	}
}
