package flow

import (
	"context"
	"testing"
)

func newTestMachine(t *testing.T, opts ...MachineOption) *Machine {
	t.Helper()
	return NewMachine(opts...)
}

func mustApply(t *testing.T, m *Machine, s State, actions ...Action) State {
	t.Helper()
	for _, a := range actions {
		next, err := m.Apply(context.Background(), s, a)
		if err != nil {
			t.Fatalf("apply %s at %s: %v", a.Type(), s.Step, err)
		}
		s = next
	}
	return s
}

func caregiverProfile() *Profile {
	return &Profile{
		ID:          "caregiver-1",
		AccountType: "caregiver",
		FirstName:   "Ana",
		CountryCode: "US",
		GcaID:       "gca-1",
		Dependents: []Profile{
			{ID: "dep-1", AccountType: AccountTypeDependent, FirstName: "Leo", GcaID: "gca-2"},
			{ID: "dep-2", AccountType: AccountTypeDependent, FirstName: "Mia", GcaID: "gca-3"},
		},
	}
}

func selfProfile() *Profile {
	return &Profile{ID: "self-1", AccountType: "self", FirstName: "Sam", CountryCode: "CA", GcaID: "gca-9"}
}

// throughSpecifyProduct drives a guest session up to TSG_INTERVIEW.
func throughSpecifyProduct(t *testing.T, m *Machine) State {
	t.Helper()
	return mustApply(t, m, NewState(ModeGuest),
		Initialize{},
		GuestRequestSupport{},
		AcknowledgeNotSAE{Accepted: true},
		SelectInsertionLocation{Site: "arm"},
		SelectIssueDate{Date: "2026-10-01"},
		SelectIssueCategory{Category: "012"},
		SpecifyProduct{Details: ProductDetails{Date: "2026-09-28", SerialNumber: "812345", Generation: "G6"}},
	)
}

func sampleProducts() map[string]SentinelProduct {
	return map[string]SentinelProduct{
		"SN1": {SerialNumber: "SN1", AuditTimeStamp: "2026-09-25T10:00:00.000Z", ProductType: "G7"},
	}
}
