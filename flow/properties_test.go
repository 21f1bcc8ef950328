package flow

import (
	"context"
	"math/rand"
	"reflect"
	"testing"
)

func randomAction(r *rand.Rand) Action {
	profile := caregiverProfile()
	dates := []string{"", "2026-10-01", "2026-10-02"}
	categories := []string{"012", "042", "113", "224", "Other"}
	switch r.Intn(17) {
	case 0:
		return Initialize{Profile: profile}
	case 1:
		return SelectPatient{Patient: profile.Dependents[r.Intn(len(profile.Dependents))]}
	case 2:
		return GuestRequestSupport{}
	case 3:
		return AcknowledgeNotSAE{Accepted: r.Intn(4) != 0}
	case 4:
		return SelectInsertionLocation{Site: []string{"arm", "abdomen"}[r.Intn(2)]}
	case 5:
		return SelectIssueDate{Date: dates[r.Intn(len(dates))]}
	case 6:
		return SetSentinelProducts{Products: sampleProducts(), FetchedFor: dates[r.Intn(len(dates))]}
	case 7:
		return SetSentinelManualInput{Manual: r.Intn(2) == 0}
	case 8:
		return SelectIssueCategory{Category: categories[r.Intn(len(categories))], Flags: IssueFlags{IssueLastsOverAnHour: r.Intn(2) == 0}}
	case 9:
		return SpecifyProduct{Details: ProductDetails{Generation: []string{"G6", "G7", "D1+"}[r.Intn(3)]}}
	case 10:
		return SubmitTSGInterview{Answers: []TSGAnswer{{QuestionID: "q1", Response: "yes"}}}
	case 11:
		return SubmitUserInfo{Info: UserInfo{FirstName: "Ana"}}
	case 12:
		return ConfirmSubmission{}
	case 13:
		return ExitSubmission{}
	case 14:
		return ReturnToGuestStart{}
	case 15:
		return AbandonNavigateAway{}
	default:
		return GoBack{}
	}
}

func randomRun(t *testing.T, m *Machine, seed int64, steps int, check func(prev, next State, a Action)) {
	t.Helper()
	r := rand.New(rand.NewSource(seed))
	modes := []Mode{ModeGuest, ModeCaregiver, ModeAuthenticatedSelf}
	s := NewState(modes[r.Intn(len(modes))])
	for i := 0; i < steps; i++ {
		a := randomAction(r)
		next, err := m.Apply(context.Background(), s, a)
		if err != nil {
			continue
		}
		check(s, next, a)
		s = next
	}
}

func TestTransitionsAreDeterministic(t *testing.T) {
	m := newTestMachine(t)
	other := newTestMachine(t)
	for seed := int64(1); seed <= 25; seed++ {
		randomRun(t, m, seed, 60, func(prev, next State, a Action) {
			again, err := other.Apply(context.Background(), prev, a)
			if err != nil {
				t.Fatalf("seed %d: second run failed: %v", seed, err)
			}
			if !reflect.DeepEqual(again, next) {
				t.Fatalf("seed %d: %s not deterministic\nfirst:  %+v\nsecond: %+v", seed, a.Type(), next, again)
			}
		})
	}
}

func TestHistoryHasNoConsecutiveDuplicates(t *testing.T) {
	m := newTestMachine(t)
	for seed := int64(1); seed <= 50; seed++ {
		randomRun(t, m, seed, 80, func(_, next State, a Action) {
			h := next.StepHistory
			for i := 1; i < len(h); i++ {
				if h[i] == h[i-1] {
					t.Fatalf("seed %d: %s produced duplicate %s in %v", seed, a.Type(), h[i], h)
				}
			}
		})
	}
}

func TestDisplayProjectionIsIdempotent(t *testing.T) {
	m := newTestMachine(t)
	for seed := int64(1); seed <= 20; seed++ {
		randomRun(t, m, seed, 60, func(_, next State, _ Action) {
			once := ProjectDisplay(next)
			next.Display = once
			if ProjectDisplay(next) != once {
				t.Fatalf("seed %d: projection not idempotent at %s", seed, next.Step)
			}
		})
	}
	for _, step := range Steps() {
		for _, mode := range []Mode{ModeGuest, ModeCaregiver, ModeDependent, ModeAuthenticatedSelf} {
			s := NewState(mode)
			s.Step = step
			_ = ProjectDisplay(s)
		}
	}
}

func TestProgressIsMonotonicOnCanonicalPath(t *testing.T) {
	m := newTestMachine(t)
	s := NewState(ModeGuest)
	actions := []Action{
		Initialize{},
		GuestRequestSupport{},
		AcknowledgeNotSAE{Accepted: true},
		SelectInsertionLocation{Site: "arm"},
		SelectIssueDate{Date: "2026-10-01"},
		SetSentinelProducts{Products: sampleProducts(), FetchedFor: "2026-10-01"},
		SelectIssueCategory{Category: "012"},
		SetSentinelManualInput{Manual: true},
		SpecifyProduct{Details: ProductDetails{Generation: "G7"}},
		SubmitTSGInterview{Answers: []TSGAnswer{{QuestionID: "q1"}}},
		SubmitUserInfo{Info: UserInfo{FirstName: "Ana"}},
		ConfirmSubmission{},
	}
	resolver := m.Resolver()
	for _, a := range actions {
		next := mustApply(t, m, s, a)
		if next.Progress < s.Progress {
			t.Fatalf("%s: progress went from %d to %d", a.Type(), s.Progress, next.Progress)
		}
		if orphans := resolver.Orphans(next); !orphans.Empty() {
			t.Fatalf("%s left orphaned answers %s", a.Type(), orphans)
		}
		s = next
	}
	if s.Progress != 100 {
		t.Fatalf("expected 100, got %d", s.Progress)
	}
}
