package flow

import (
	"reflect"
	"testing"
)

func TestBackTarget(t *testing.T) {
	waypoints := DefaultWaypoints()
	cases := []struct {
		name    string
		history []Step
		current Step
		want    int
		ok      bool
	}{
		{name: "empty", history: nil, current: StepGuestStart, ok: false},
		{name: "single entry", history: []Step{StepGuestStart}, current: StepGuestStart, want: 0, ok: true},
		{
			name:    "skips waypoints to entry",
			history: []Step{StepGuestStart, StepAcknowledgeNotSAE, StepSelectInsertionSite, StepSelectIssueDate},
			current: StepSelectIssueDate,
			want:    0,
			ok:      true,
		},
		{
			name:    "lands on product step",
			history: []Step{StepGuestStart, StepAcknowledgeNotSAE, StepSelectIssueCategory, StepSpecifyProduct, StepTSGInterview},
			current: StepTSGInterview,
			want:    3,
			ok:      true,
		},
		{
			name:    "skips sentinel picker alias",
			history: []Step{StepSelectPatient, StepSelectYourDevice, StepSentinelShowSpecifyProduct, StepTSGInterview},
			current: StepTSGInterview,
			want:    2,
			ok:      true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := BackTarget(tc.history, tc.current, waypoints)
			if ok != tc.ok || (ok && got != tc.want) {
				t.Fatalf("expected (%d,%v), got (%d,%v)", tc.want, tc.ok, got, ok)
			}
		})
	}
}

func TestGoBackFromEntrySuccessorOpensGateOnce(t *testing.T) {
	m := newTestMachine(t)
	s := mustApply(t, m, NewState(ModeGuest), Initialize{}, GuestRequestSupport{})

	first := mustApply(t, m, s, GoBack{})
	if first.Step != StepAcknowledgeNotSAE || !first.OpenNavigateAwayModal {
		t.Fatalf("expected gate open on ACK, got %s modal=%v", first.Step, first.OpenNavigateAwayModal)
	}
	if !reflect.DeepEqual(first.StepHistory, s.StepHistory) {
		t.Fatalf("gate must not touch history")
	}

	second := mustApply(t, m, first, GoBack{})
	if !reflect.DeepEqual(second, first) {
		t.Fatalf("repeated GO_BACK must leave the state unchanged")
	}

	closed := mustApply(t, m, second, AbandonNavigateAway{})
	if closed.OpenNavigateAwayModal || closed.Step != StepAcknowledgeNotSAE {
		t.Fatalf("expected gate closed in place, got %s modal=%v", closed.Step, closed.OpenNavigateAwayModal)
	}
}

func TestGoBackSkipsWaypoints(t *testing.T) {
	m := newTestMachine(t)
	s := throughSpecifyProduct(t, m)

	back := mustApply(t, m, s, GoBack{})
	if back.Step != StepSpecifyProduct {
		t.Fatalf("expected SPECIFY_PRODUCT, got %s", back.Step)
	}
	if back.SideEffect != SideEffectScrollToTop || back.TS != s.TS+1 {
		t.Fatalf("expected scroll to top with fresh token, got %s %d", back.SideEffect, back.TS)
	}
	if back.Progress != 60 {
		t.Fatalf("expected progress 60, got %d", back.Progress)
	}
	if last := back.StepHistory[len(back.StepHistory)-1]; last != StepSpecifyProduct {
		t.Fatalf("history must end on landing step, got %v", back.StepHistory)
	}
	if back.Collected.SpecifiedProductDetails == nil {
		t.Fatalf("going back keeps the answers for pre-fill")
	}

	gate := mustApply(t, m, back, GoBack{})
	if gate.Step != StepSpecifyProduct || !gate.OpenNavigateAwayModal {
		t.Fatalf("only waypoints remain before the entry step, got %s", gate.Step)
	}
}

func TestGoBackToSelectPatient(t *testing.T) {
	m := newTestMachine(t)
	profile := caregiverProfile()
	s := mustApply(t, m, NewState(ModeCaregiver),
		Initialize{Profile: profile},
		SelectPatient{Patient: profile.Dependents[1]},
		AcknowledgeNotSAE{Accepted: true},
		SelectInsertionLocation{Site: "arm"},
	)
	back := mustApply(t, m, s, GoBack{})
	if back.Step != StepSelectPatient || back.OpenNavigateAwayModal {
		t.Fatalf("expected SELECT_PATIENT without gate, got %s", back.Step)
	}
	if !reflect.DeepEqual(back.StepHistory, []Step{StepSelectPatient}) {
		t.Fatalf("unexpected history %v", back.StepHistory)
	}
}

func TestGoBackWithCustomEntryStep(t *testing.T) {
	m := newTestMachine(t, WithEntryStep(StepSelectPatient))
	profile := caregiverProfile()
	s := mustApply(t, m, NewState(ModeCaregiver),
		Initialize{Profile: profile},
		SelectPatient{Patient: profile.Dependents[1]},
	)
	back := mustApply(t, m, s, GoBack{})
	if !back.OpenNavigateAwayModal || back.Step != StepAcknowledgeNotSAE {
		t.Fatalf("expected gate on custom entry step, got %s", back.Step)
	}
}

func TestGoBackOnEmptyHistoryIsNoop(t *testing.T) {
	m := newTestMachine(t)
	s := NewState(ModeGuest)
	if next := mustApply(t, m, s, GoBack{}); !reflect.DeepEqual(next, s) {
		t.Fatalf("expected unchanged state")
	}
}
