package flow

import (
	"fmt"
	"strings"
)

// Step identifies one screen of the intake wizard. Steps are ordered: the
// display projection relies on range comparisons between them.
type Step int

const (
	StepUninitialized Step = iota
	StepGuestStart
	StepSelectPatient
	StepAcknowledgeNotSAE
	StepSelectInsertionSite
	StepSelectIssueDate
	StepSelectIssueCategory
	StepSelectSentinelProduct
	StepSentinelShowSpecifyProduct
	StepSpecifyProduct
	StepTSGInterview
	StepCollectUserInfo
	StepConfirmSubmission
)

// StepSelectYourDevice is the screen name used by the presentation layer for
// the sentinel product picker.
const StepSelectYourDevice = StepSelectSentinelProduct

var stepNames = [...]string{
	StepUninitialized:              "UNINITIALIZED",
	StepGuestStart:                 "GUEST_START",
	StepSelectPatient:              "SELECT_PATIENT",
	StepAcknowledgeNotSAE:          "ACKNOWLEDGE_NOT_SAE",
	StepSelectInsertionSite:        "SELECT_INSERTION_SITE",
	StepSelectIssueDate:            "SELECT_ISSUE_DATE",
	StepSelectIssueCategory:        "SELECT_ISSUE_CATEGORY",
	StepSelectSentinelProduct:      "SELECT_SENTINEL_PRODUCT",
	StepSentinelShowSpecifyProduct: "SENTINEL_SHOW_SPECIFY_PRODUCT",
	StepSpecifyProduct:             "SPECIFY_PRODUCT",
	StepTSGInterview:               "TSG_INTERVIEW",
	StepCollectUserInfo:            "COLLECT_USER_INFO",
	StepConfirmSubmission:          "CONFIRM_SUBMISSION",
}

// Steps returns every step in forward order.
func Steps() []Step {
	out := make([]Step, 0, len(stepNames))
	for i := range stepNames {
		out = append(out, Step(i))
	}
	return out
}

// Valid reports whether s belongs to the closed step enumeration.
func (s Step) Valid() bool {
	return s >= StepUninitialized && int(s) < len(stepNames)
}

func (s Step) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Step(%d)", int(s))
	}
	return stepNames[s]
}

// ParseStep resolves a step name. SELECT_YOUR_DEVICE is accepted as an
// alias for SELECT_SENTINEL_PRODUCT.
func ParseStep(name string) (Step, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "SELECT_YOUR_DEVICE" {
		return StepSelectYourDevice, nil
	}
	for i, n := range stepNames {
		if n == name {
			return Step(i), nil
		}
	}
	return StepUninitialized, fmt.Errorf("unknown step %q", name)
}

func (s Step) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid step %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(text []byte) error {
	parsed, err := ParseStep(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Mode is the kind of user driving the wizard.
type Mode string

const (
	ModeGuest             Mode = "GUEST"
	ModeCaregiver         Mode = "CAREGIVER"
	ModeDependent         Mode = "DEPENDENT"
	ModeAuthenticatedSelf Mode = "AUTHENTICATED_SELF"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeGuest, ModeCaregiver, ModeDependent, ModeAuthenticatedSelf:
		return true
	}
	return false
}

// ParseMode accepts the canonical names plus the hyphenated spelling of
// AUTHENTICATED_SELF.
func ParseMode(value string) (Mode, error) {
	m := Mode(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(value)), "-", "_"))
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q", value)
	}
	return m, nil
}

// SideEffect is a one-shot signal for the caller. It stays on the state until
// another transition overwrites it; callers detect new signals through the
// effect token.
type SideEffect string

const (
	SideEffectNone                         SideEffect = ""
	SideEffectFetchSentinelData            SideEffect = "FETCH_SENTINEL_DATA"
	SideEffectSubmitToSFDC                 SideEffect = "SUBMIT_TO_SFDC"
	SideEffectRedirectToSupportLandingPage SideEffect = "REDIRECT_TO_SUPPORT_LANDING_PAGE"
	SideEffectScrollToTop                  SideEffect = "SCROLL_TO_TOP"
)

// IsPresentation reports whether the effect is handled by the presentation
// layer rather than by a backend gateway.
func (e SideEffect) IsPresentation() bool {
	return e == SideEffectRedirectToSupportLandingPage || e == SideEffectScrollToTop
}
