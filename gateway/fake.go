package gateway

import (
	"context"
	"sync"

	"github.com/goliatone/go-intake/flow"
)

// StaticSentinel serves a fixed product history through the same filter
// as SentinelClient. Used for local runs and tests.
type StaticSentinel struct {
	Products []flow.SentinelProduct
	UserData *flow.SentinelUserData
	Err      error
	Catalog  *flow.Catalog

	mu       sync.Mutex
	requests []LookupRequest
}

func (s *StaticSentinel) Query(_ context.Context, req LookupRequest) (LookupResult, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.Err != nil {
		return LookupResult{}, s.Err
	}
	var userData *flow.SentinelUserData
	if s.UserData != nil {
		ud := *s.UserData
		userData = &ud
	}
	return LookupResult{
		Products: FilterProducts(s.Products, req.IssueDate, req.CountryCode, s.Catalog),
		UserData: userData,
	}, nil
}

// Requests returns the lookups received so far.
func (s *StaticSentinel) Requests() []LookupRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LookupRequest(nil), s.requests...)
}

// RecordingSubmitter keeps every ticket it receives. When Err is set each
// submission fails with it.
type RecordingSubmitter struct {
	Err error

	mu      sync.Mutex
	tickets []Ticket
}

func (r *RecordingSubmitter) Execute(_ context.Context, t Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets = append(r.tickets, t)
	return r.Err
}

func (r *RecordingSubmitter) Tickets() []Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Ticket(nil), r.tickets...)
}
