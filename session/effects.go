package session

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-intake/flow"
	"github.com/goliatone/go-intake/gateway"
	"github.com/goliatone/go-intake/runner"
)

var errNoSubmitter = errors.New("submission gateway not configured")

// resolve runs the backend effect requested by s and returns the action
// that reports its result.
func (h *Host) resolve(ctx context.Context, logger flow.Logger, s flow.State) flow.Action {
	switch s.SideEffect {
	case flow.SideEffectFetchSentinelData:
		return h.fetchProducts(ctx, logger, s)
	case flow.SideEffectSubmitToSFDC:
		return h.submit(ctx, logger, s)
	}
	return nil
}

// fetchProducts never fails the session: a lookup that cannot run or fails
// reports an empty product history.
func (h *Host) fetchProducts(ctx context.Context, logger flow.Logger, s flow.State) flow.Action {
	issueDate := s.Collected.IssueDate
	empty := flow.SetSentinelProducts{Products: map[string]flow.SentinelProduct{}, FetchedFor: issueDate}

	req := lookupRequest(s)
	if h.sentinel == nil || req.Validate() != nil {
		h.observe(s.SideEffect, OutcomeSkipped, 0)
		return empty
	}

	start := time.Now()
	res, err := runner.RunQuery(ctx, h.runner, h.sentinel, req)
	elapsed := time.Since(start)
	if err != nil {
		h.observe(s.SideEffect, OutcomeFailure, elapsed)
		logger.Error("sentinel lookup failed: %v", gateway.Failed("sentinel lookup", err))
		return empty
	}
	h.observe(s.SideEffect, OutcomeSuccess, elapsed)
	if res.Products == nil {
		res.Products = map[string]flow.SentinelProduct{}
	}
	return res.Action(issueDate)
}

func (h *Host) submit(ctx context.Context, logger flow.Logger, s flow.State) flow.Action {
	if h.submitter == nil {
		h.observe(s.SideEffect, OutcomeSkipped, 0)
		return flow.ConfirmSubmission{Error: errNoSubmitter.Error()}
	}
	ticket := gateway.NewTicket(s, h.machine.Catalog())

	start := time.Now()
	err := runner.RunCommand(ctx, h.runner, h.submitter, ticket)
	elapsed := time.Since(start)
	if err != nil {
		h.observe(s.SideEffect, OutcomeFailure, elapsed)
		logger.Error("case submission failed: %v", gateway.Failed("case submission", err))
		return flow.ConfirmSubmission{Error: err.Error()}
	}
	h.observe(s.SideEffect, OutcomeSuccess, elapsed)
	return flow.ConfirmSubmission{}
}

func (h *Host) observe(effect flow.SideEffect, outcome string, elapsed time.Duration) {
	if h.observer != nil {
		h.observer.ObserveEffect(effect, outcome, elapsed)
	}
}

// lookupRequest addresses the selected patient, falling back to the
// reporter for the customer id and country.
func lookupRequest(s flow.State) gateway.LookupRequest {
	req := gateway.LookupRequest{IssueDate: s.Collected.IssueDate}
	for _, p := range []*flow.Profile{s.Collected.SelectedPatient, s.Collected.Reporter} {
		if p == nil {
			continue
		}
		if req.GcaID == "" {
			req.GcaID = p.GcaID
		}
		if req.CountryCode == "" {
			req.CountryCode = p.CountryCode
		}
	}
	return req
}
