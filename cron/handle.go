package cron

import (
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
)

// ScheduleStatus reports a schedule handle state.
type ScheduleStatus string

const (
	ScheduleStatusScheduled ScheduleStatus = "scheduled"
	ScheduleStatusRunning   ScheduleStatus = "running"
	ScheduleStatusIdle      ScheduleStatus = "idle"
	ScheduleStatusFailed    ScheduleStatus = "failed"
	ScheduleStatusCanceled  ScheduleStatus = "canceled"
	ScheduleStatusStopped   ScheduleStatus = "stopped"
)

// Handle controls one scheduled job. A failed run does not end the
// schedule; Err reports the last failure until a run succeeds.
type Handle interface {
	Cancel()
	Status() ScheduleStatus
	Err() error
	Done() <-chan struct{}
	ID() int64
	Name() string
	Runs() int
	LastRun() time.Time
}

type handle struct {
	scheduler *Scheduler
	id        int64
	name      string
	entryID   rcron.EntryID
	done      chan struct{}

	mu      sync.RWMutex
	status  ScheduleStatus
	err     error
	runs    int
	lastRun time.Time
	once    sync.Once
}

func (h *handle) Cancel() {
	h.once.Do(func() {
		h.scheduler.removeHandle(h.id)
		h.setTerminal(ScheduleStatusCanceled)
	})
}

func (h *handle) Status() ScheduleStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

func (h *handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

func (h *handle) Done() <-chan struct{} { return h.done }

func (h *handle) ID() int64 { return h.id }

func (h *handle) Name() string { return h.name }

func (h *handle) Runs() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.runs
}

func (h *handle) LastRun() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastRun
}

func (h *handle) setStatus(status ScheduleStatus, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if isTerminalStatus(h.status) {
		return
	}
	h.status = status
	h.err = err
}

func (h *handle) finishRun(at time.Time, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs++
	h.lastRun = at
	h.err = err
	if isTerminalStatus(h.status) {
		return
	}
	if err != nil {
		h.status = ScheduleStatusFailed
	} else {
		h.status = ScheduleStatusIdle
	}
}

func (h *handle) setTerminal(status ScheduleStatus) {
	h.mu.Lock()
	h.status = status
	h.mu.Unlock()
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

func isTerminalStatus(status ScheduleStatus) bool {
	return status == ScheduleStatusCanceled || status == ScheduleStatusStopped
}
