package flow

import (
	"fmt"
	"strings"
)

// ActionType names an entry of the action catalogue.
type ActionType string

const (
	ActionInitialize              ActionType = "INITIALIZE"
	ActionSelectPatient           ActionType = "SELECT_PATIENT"
	ActionGuestRequestSupport     ActionType = "GUEST_REQUEST_SUPPORT"
	ActionAcknowledgeNotSAE       ActionType = "ACKNOWLEDGE_NOT_SAE"
	ActionSelectInsertionLocation ActionType = "SELECT_INSERTION_LOCATION"
	ActionSelectIssueDate         ActionType = "SELECT_ISSUE_DATE"
	ActionSetSentinelProducts     ActionType = "SET_SENTINEL_PRODUCTS"
	ActionSetSentinelManualInput  ActionType = "SET_SENTINEL_MANUAL_INPUT"
	ActionSelectIssueCategory     ActionType = "SELECT_ISSUE_CATEGORY"
	ActionSpecifyProduct          ActionType = "SPECIFY_PRODUCT"
	ActionSubmitTSGInterview      ActionType = "SUBMIT_TSG_INTERVIEW"
	ActionSubmitUserInfo          ActionType = "SUBMIT_USER_INFO"
	ActionConfirmSubmission       ActionType = "CONFIRM_SUBMISSION"
	ActionExitSubmission          ActionType = "EXIT_SUBMISSION"
	ActionGoBack                  ActionType = "GO_BACK"
	ActionReturnToGuestStart      ActionType = "RETURN_TO_GUEST_START"
	ActionAbandonNavigateAway     ActionType = "ABANDON_NAVIGATE_AWAY"
	ActionDebugOverrideState      ActionType = "DEBUG_OVERRIDE_STATE"
)

// ActionTypes lists the catalogue in declaration order.
func ActionTypes() []ActionType {
	return []ActionType{
		ActionInitialize, ActionSelectPatient, ActionGuestRequestSupport,
		ActionAcknowledgeNotSAE, ActionSelectInsertionLocation, ActionSelectIssueDate,
		ActionSetSentinelProducts, ActionSetSentinelManualInput, ActionSelectIssueCategory,
		ActionSpecifyProduct, ActionSubmitTSGInterview, ActionSubmitUserInfo,
		ActionConfirmSubmission, ActionExitSubmission, ActionGoBack,
		ActionReturnToGuestStart, ActionAbandonNavigateAway, ActionDebugOverrideState,
	}
}

// Action is a discrete intent consumed by the machine. It satisfies the
// root message contract.
type Action interface {
	Type() string
	Validate() error
}

type Initialize struct {
	Profile *Profile
}

func (Initialize) Type() string    { return string(ActionInitialize) }
func (Initialize) Validate() error { return nil }

type SelectPatient struct {
	Patient Profile
}

func (SelectPatient) Type() string { return string(ActionSelectPatient) }

func (a SelectPatient) Validate() error {
	if strings.TrimSpace(a.Patient.ID) == "" && strings.TrimSpace(a.Patient.FirstName) == "" {
		return fmt.Errorf("patient requires an id or a name")
	}
	return nil
}

type GuestRequestSupport struct{}

func (GuestRequestSupport) Type() string    { return string(ActionGuestRequestSupport) }
func (GuestRequestSupport) Validate() error { return nil }

type AcknowledgeNotSAE struct {
	Accepted bool
}

func (AcknowledgeNotSAE) Type() string    { return string(ActionAcknowledgeNotSAE) }
func (AcknowledgeNotSAE) Validate() error { return nil }

type SelectInsertionLocation struct {
	Site string
}

func (SelectInsertionLocation) Type() string { return string(ActionSelectInsertionLocation) }

func (a SelectInsertionLocation) Validate() error {
	if strings.TrimSpace(a.Site) == "" {
		return fmt.Errorf("insertion site required")
	}
	return nil
}

// SelectIssueDate carries an ISO date (yyyy-MM-dd). An empty date clears the
// stored one.
type SelectIssueDate struct {
	Date string
}

func (SelectIssueDate) Type() string    { return string(ActionSelectIssueDate) }
func (SelectIssueDate) Validate() error { return nil }

// SetSentinelProducts feeds back the result of a product history lookup.
// FetchedFor is the issue date the lookup was issued for.
type SetSentinelProducts struct {
	Products   map[string]SentinelProduct
	UserData   *SentinelUserData
	FetchedFor string
}

func (SetSentinelProducts) Type() string    { return string(ActionSetSentinelProducts) }
func (SetSentinelProducts) Validate() error { return nil }

type SetSentinelManualInput struct {
	Manual bool
}

func (SetSentinelManualInput) Type() string    { return string(ActionSetSentinelManualInput) }
func (SetSentinelManualInput) Validate() error { return nil }

type SelectIssueCategory struct {
	Category string
	Flags    IssueFlags
}

func (SelectIssueCategory) Type() string { return string(ActionSelectIssueCategory) }

func (a SelectIssueCategory) Validate() error {
	if strings.TrimSpace(a.Category) == "" {
		return fmt.Errorf("issue category required")
	}
	return nil
}

type SpecifyProduct struct {
	Details ProductDetails
}

func (SpecifyProduct) Type() string    { return string(ActionSpecifyProduct) }
func (SpecifyProduct) Validate() error { return nil }

type SubmitTSGInterview struct {
	Answers []TSGAnswer
}

func (SubmitTSGInterview) Type() string { return string(ActionSubmitTSGInterview) }

func (a SubmitTSGInterview) Validate() error {
	for i, answer := range a.Answers {
		if strings.TrimSpace(answer.QuestionID) == "" {
			return fmt.Errorf("answer %d: question id required", i)
		}
	}
	return nil
}

type SubmitUserInfo struct {
	Info UserInfo
}

func (SubmitUserInfo) Type() string    { return string(ActionSubmitUserInfo) }
func (SubmitUserInfo) Validate() error { return nil }

// ConfirmSubmission reports the outcome of a submission. An empty Error
// means success.
type ConfirmSubmission struct {
	Error string
}

func (ConfirmSubmission) Type() string    { return string(ActionConfirmSubmission) }
func (ConfirmSubmission) Validate() error { return nil }

type ExitSubmission struct{}

func (ExitSubmission) Type() string    { return string(ActionExitSubmission) }
func (ExitSubmission) Validate() error { return nil }

type GoBack struct{}

func (GoBack) Type() string    { return string(ActionGoBack) }
func (GoBack) Validate() error { return nil }

type ReturnToGuestStart struct{}

func (ReturnToGuestStart) Type() string    { return string(ActionReturnToGuestStart) }
func (ReturnToGuestStart) Validate() error { return nil }

type AbandonNavigateAway struct{}

func (AbandonNavigateAway) Type() string    { return string(ActionAbandonNavigateAway) }
func (AbandonNavigateAway) Validate() error { return nil }

// DebugOverrideState replaces the whole state. Tooling only.
type DebugOverrideState struct {
	State State
}

func (DebugOverrideState) Type() string { return string(ActionDebugOverrideState) }

func (a DebugOverrideState) Validate() error {
	if !a.State.Step.Valid() {
		return fmt.Errorf("override state has invalid step %d", int(a.State.Step))
	}
	return nil
}
