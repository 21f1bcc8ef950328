package flow

import (
	stderrors "errors"
	"strings"

	apperrors "github.com/goliatone/go-errors"
)

const (
	ErrCodeUnknownAction        = "INTAKE_UNKNOWN_ACTION"
	ErrCodeMissingProfile       = "INTAKE_MISSING_PROFILE"
	ErrCodeInvalidActionPayload = "INTAKE_INVALID_ACTION_PAYLOAD"
	ErrCodeHookRejected         = "INTAKE_HOOK_REJECTED"
)

var (
	ErrUnknownAction = apperrors.New("unknown action", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeUnknownAction)
	ErrMissingProfile = apperrors.New("initialize requires a profile", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeMissingProfile)
	ErrInvalidActionPayload = apperrors.New("invalid action payload", apperrors.CategoryValidation).
				WithTextCode(ErrCodeInvalidActionPayload)
	ErrHookRejected = apperrors.New("transition hook rejected action", apperrors.CategoryConflict).
			WithTextCode(ErrCodeHookRejected)
)

func cloneRuntimeError(base *apperrors.Error, message string, source error, metadata map[string]any) *apperrors.Error {
	if base == nil {
		base = ErrInvalidActionPayload
	}
	err := base.Clone()
	if text := strings.TrimSpace(message); text != "" {
		err.Message = text
	}
	if source != nil {
		err.Source = source
	}
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

// NewRuntimeError clones base with an optional message, source and
// metadata. Packages outside flow build their coded errors through it.
func NewRuntimeError(base *apperrors.Error, message string, source error, metadata map[string]any) *apperrors.Error {
	return cloneRuntimeError(base, message, source, metadata)
}

// ErrorCode returns the text code carried by err, or "".
func ErrorCode(err error) string {
	var ge *apperrors.Error
	if stderrors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

// IsProgrammingError reports whether err signals a caller bug rather than a
// user or environment failure.
func IsProgrammingError(err error) bool {
	switch ErrorCode(err) {
	case ErrCodeUnknownAction, ErrCodeMissingProfile:
		return true
	}
	return false
}
