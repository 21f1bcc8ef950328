package session

import (
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-intake/flow"
)

// Record is one persisted wizard session.
type Record struct {
	ID        string     `json:"id"`
	Version   int        `json:"version"`
	State     flow.State `json:"state"`
	Finished  bool       `json:"finished"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func cloneRecord(rec *Record) *Record {
	if rec == nil {
		return nil
	}
	cp := *rec
	cp.State = rec.State.Clone()
	return &cp
}

// applyVersionedUpdate stamps next with the version that follows current,
// or fails when current does not carry expectedVersion. A missing current
// record only accepts expectedVersion 0.
func applyVersionedUpdate(next, current *Record, expectedVersion int) (int, error) {
	next.ID = strings.TrimSpace(next.ID)
	if next.ID == "" {
		return 0, errors.New("session record id required")
	}
	if expectedVersion < 0 {
		expectedVersion = 0
	}
	if current == nil {
		if expectedVersion != 0 {
			return 0, conflict(next.ID, expectedVersion)
		}
		next.Version = 1
	} else {
		if current.Version != expectedVersion {
			return 0, conflict(next.ID, expectedVersion)
		}
		next.Version = expectedVersion + 1
		next.CreatedAt = current.CreatedAt
	}
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = time.Now().UTC()
	}
	if next.CreatedAt.IsZero() {
		next.CreatedAt = next.UpdatedAt
	}
	return next.Version, nil
}

func formatTimestamp(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}
