package session

import (
	apperrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-intake/flow"
)

const (
	ErrCodeSessionNotFound = "INTAKE_SESSION_NOT_FOUND"
	ErrCodeVersionConflict = "INTAKE_VERSION_CONFLICT"
)

var (
	ErrSessionNotFound = apperrors.New("session not found", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeSessionNotFound)
	ErrVersionConflict = apperrors.New("session version conflict", apperrors.CategoryConflict).
				WithTextCode(ErrCodeVersionConflict)
)

func notFound(id string) error {
	return flow.NewRuntimeError(ErrSessionNotFound, "", nil, map[string]any{"session_id": id})
}

func conflict(id string, expected int) error {
	return flow.NewRuntimeError(ErrVersionConflict, "", nil, map[string]any{
		"session_id":       id,
		"expected_version": expected,
	})
}

// IsNotFound reports whether err means the session does not exist.
func IsNotFound(err error) bool {
	return flow.ErrorCode(err) == ErrCodeSessionNotFound
}

// IsConflict reports whether err is an optimistic concurrency failure.
func IsConflict(err error) bool {
	return flow.ErrorCode(err) == ErrCodeVersionConflict
}
