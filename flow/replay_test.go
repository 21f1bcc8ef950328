package flow

import (
	"reflect"
	"testing"
)

func TestReacknowledgeReplaysDownstreamScreens(t *testing.T) {
	m := newTestMachine(t)
	profile := caregiverProfile()
	s := mustApply(t, m, NewState(ModeCaregiver),
		Initialize{Profile: profile},
		SelectPatient{Patient: profile.Dependents[0]},
		AcknowledgeNotSAE{Accepted: true},
		SelectInsertionLocation{Site: "arm"},
		SelectIssueDate{Date: "2026-10-01"},
		SelectIssueCategory{Category: "075"},
		SpecifyProduct{Details: ProductDetails{Generation: "G6"}},
	)

	s = mustApply(t, m, s, GoBack{})
	s = mustApply(t, m, s, GoBack{})
	if s.Step != StepSelectPatient {
		t.Fatalf("expected SELECT_PATIENT, got %s", s.Step)
	}
	s = mustApply(t, m, s, SelectPatient{Patient: profile.Dependents[0]})
	before := s.TS

	s = mustApply(t, m, s, AcknowledgeNotSAE{Accepted: true})
	if s.Step != StepSpecifyProduct {
		t.Fatalf("expected replay to land on SPECIFY_PRODUCT, got %s", s.Step)
	}
	if s.SideEffect != SideEffectFetchSentinelData || s.TS <= before {
		t.Fatalf("replayed issue date must refetch, got %s %d", s.SideEffect, s.TS)
	}
	want := []Step{
		StepSelectPatient, StepAcknowledgeNotSAE, StepSelectInsertionSite,
		StepSelectIssueDate, StepSelectIssueCategory, StepSpecifyProduct,
	}
	if !reflect.DeepEqual(s.StepHistory, want) {
		t.Fatalf("expected %v, got %v", want, s.StepHistory)
	}
	if s.Progress != 60 {
		t.Fatalf("expected progress 60, got %d", s.Progress)
	}
	if s.Collected.SpecifiedProductDetails == nil {
		t.Fatalf("unchanged answers must survive the replay")
	}
}

func TestReacknowledgeKeepsFetchedProducts(t *testing.T) {
	m := newTestMachine(t)
	profile := caregiverProfile()
	s := mustApply(t, m, NewState(ModeCaregiver),
		Initialize{Profile: profile},
		SelectPatient{Patient: profile.Dependents[0]},
		AcknowledgeNotSAE{Accepted: true},
		SelectInsertionLocation{Site: "arm"},
		SelectIssueDate{Date: "2026-10-01"},
		SetSentinelProducts{Products: sampleProducts(), FetchedFor: "2026-10-01"},
		SelectIssueCategory{Category: "075"},
	)
	if s.Step != StepSelectSentinelProduct {
		t.Fatalf("expected SELECT_SENTINEL_PRODUCT, got %s", s.Step)
	}

	s = mustApply(t, m, s, GoBack{}, GoBack{}, SelectPatient{Patient: profile.Dependents[0]})
	if len(s.Transient.SentinelProducts) != 1 {
		t.Fatalf("expected products before acknowledging, got %+v", s.Transient)
	}

	s = mustApply(t, m, s, AcknowledgeNotSAE{Accepted: true})
	if s.Step != StepSelectSentinelProduct {
		t.Fatalf("expected replay to land on SELECT_SENTINEL_PRODUCT, got %s", s.Step)
	}
	if !reflect.DeepEqual(s.Transient.SentinelProducts, sampleProducts()) {
		t.Fatalf("expected products kept, got %+v", s.Transient.SentinelProducts)
	}
	if !s.Display.SupportSelectMyProduct {
		t.Fatalf("expected product picker displayed")
	}
}

func TestAcknowledgeAndSameIssueDateKeepProducts(t *testing.T) {
	m := newTestMachine(t)
	s := mustApply(t, m, NewState(ModeGuest),
		Initialize{}, GuestRequestSupport{}, AcknowledgeNotSAE{Accepted: true},
		SelectInsertionLocation{Site: "arm"}, SelectIssueDate{Date: "2026-10-01"},
		SetSentinelProducts{Products: sampleProducts(), FetchedFor: "2026-10-01"})

	acked := mustApply(t, m, s, AcknowledgeNotSAE{Accepted: true})
	if acked.Step != StepSelectIssueCategory {
		t.Fatalf("expected replay to land on SELECT_ISSUE_CATEGORY, got %s", acked.Step)
	}
	if len(acked.Transient.SentinelProducts) != 1 {
		t.Fatalf("expected products kept, got %+v", acked.Transient)
	}

	again := mustApply(t, m, s, SelectIssueDate{Date: "2026-10-01"})
	if len(again.Transient.SentinelProducts) != 1 || again.Transient.PreventAutoSubmit {
		t.Fatalf("expected products kept for the same date, got %+v", again.Transient)
	}
	if again.SideEffect != SideEffectFetchSentinelData {
		t.Fatalf("expected a refetch, got %s", again.SideEffect)
	}

	acked.Transient.SentinelProducts["SN2"] = SentinelProduct{SerialNumber: "SN2"}
	if len(s.Transient.SentinelProducts) != 1 {
		t.Fatalf("kept products must not alias the previous state")
	}
}

func TestReplayStopsAtFirstMissingAnswer(t *testing.T) {
	m := newTestMachine(t)
	injected := NewState(ModeGuest)
	injected.Step = StepAcknowledgeNotSAE
	injected.StepHistory = []Step{StepGuestStart, StepAcknowledgeNotSAE}
	injected.Collected.InsertionSite = "arm"
	injected.Collected.IssueCategory = "012"

	s := mustApply(t, m, injected, AcknowledgeNotSAE{Accepted: true})
	if s.Step != StepSelectIssueDate {
		t.Fatalf("expected replay to stop on SELECT_ISSUE_DATE, got %s", s.Step)
	}
	if s.Collected.IssueCategory != "012" {
		t.Fatalf("replay must not touch answers it did not reach")
	}
}

func TestReplayDeduplicatesHistory(t *testing.T) {
	m := newTestMachine(t)
	injected := NewState(ModeGuest)
	injected.Step = StepAcknowledgeNotSAE
	injected.StepHistory = []Step{
		StepGuestStart, StepAcknowledgeNotSAE, StepSelectInsertionSite,
		StepSelectIssueDate, StepSelectIssueCategory, StepAcknowledgeNotSAE,
	}
	injected.Collected.InsertionSite = "arm"
	injected.Collected.IssueDate = "2026-10-01"
	injected.Collected.IssueCategory = "012"

	s := mustApply(t, m, injected, AcknowledgeNotSAE{Accepted: true})
	want := []Step{
		StepGuestStart, StepAcknowledgeNotSAE, StepSelectInsertionSite,
		StepSelectIssueDate, StepSelectIssueCategory, StepSpecifyProduct,
	}
	if !reflect.DeepEqual(s.StepHistory, want) {
		t.Fatalf("expected %v, got %v", want, s.StepHistory)
	}
	if s.Step != StepSpecifyProduct {
		t.Fatalf("expected landing step kept, got %s", s.Step)
	}
}

func TestDedupeHistoryKeepsLastOccurrence(t *testing.T) {
	got := dedupeHistory([]Step{StepGuestStart, StepAcknowledgeNotSAE, StepSelectInsertionSite, StepAcknowledgeNotSAE, StepSelectInsertionSite})
	want := []Step{StepGuestStart, StepAcknowledgeNotSAE, StepSelectInsertionSite}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
