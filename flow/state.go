package flow

// Profile is a signed-in account or one of its dependents.
type Profile struct {
	ID          string    `json:"id" yaml:"id"`
	AccountType string    `json:"accountType" yaml:"accountType"`
	FirstName   string    `json:"firstName" yaml:"firstName"`
	LastName    string    `json:"lastName" yaml:"lastName"`
	Email       string    `json:"email,omitempty" yaml:"email,omitempty"`
	Username    string    `json:"username,omitempty" yaml:"username,omitempty"`
	BirthDate   string    `json:"birthDate,omitempty" yaml:"birthDate,omitempty"`
	CountryCode string    `json:"countryCode,omitempty" yaml:"countryCode,omitempty"`
	GcaID       string    `json:"gcaId,omitempty" yaml:"gcaId,omitempty"`
	Dependents  []Profile `json:"dependents,omitempty" yaml:"dependents,omitempty"`
}

// AccountTypeDependent marks a profile managed by a caregiver.
const AccountTypeDependent = "dependent"

// HasDependents reports whether the profile manages other patients.
func (p *Profile) HasDependents() bool {
	return p != nil && len(p.Dependents) > 0
}

func (p *Profile) clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Dependents != nil {
		cp.Dependents = make([]Profile, len(p.Dependents))
		for i := range p.Dependents {
			cp.Dependents[i] = *p.Dependents[i].clone()
		}
	}
	return &cp
}

// PatientDetails holds supplementary patient fields returned with the
// product history lookup.
type PatientDetails struct {
	Weight          string `json:"patientWeight,omitempty" yaml:"patientWeight,omitempty"`
	WeightUnit      string `json:"patientWeightUnit,omitempty" yaml:"patientWeightUnit,omitempty"`
	ConnectedDevice string `json:"connectedDevice,omitempty" yaml:"connectedDevice,omitempty"`
	Gender          string `json:"gender,omitempty" yaml:"gender,omitempty"`
}

// SentinelProduct is a candidate device from the patient's product history.
type SentinelProduct struct {
	SerialNumber   string `json:"serial_number" yaml:"serial_number"`
	AuditTimeStamp string `json:"audit_time_stamp" yaml:"audit_time_stamp"`
	ProductType    string `json:"product_type" yaml:"product_type"`
}

// SentinelUserData is the raw supplementary profile data of a lookup.
type SentinelUserData struct {
	Weight          Weight `json:"weight" yaml:"weight"`
	ConnectedDevice string `json:"connectedDevice" yaml:"connectedDevice"`
	Gender          string `json:"gender" yaml:"gender"`
}

type Weight struct {
	Value string `json:"value" yaml:"value"`
	Unit  string `json:"unit" yaml:"unit"`
}

// ProductDetails is the product the issue is reported against.
type ProductDetails struct {
	Date                  string `json:"date" yaml:"date"`
	SerialNumber          string `json:"serialNumber,omitempty" yaml:"serialNumber,omitempty"`
	LotNumber             string `json:"lotNumber,omitempty" yaml:"lotNumber,omitempty"`
	ContinueWithoutSerial bool   `json:"continueWithoutSerial" yaml:"continueWithoutSerial"`
	Generation            string `json:"productGeneration" yaml:"productGeneration"`
}

// TSGAnswer is one answered question of the troubleshooting interview.
type TSGAnswer struct {
	QuestionID   string   `json:"questionId" yaml:"questionId"`
	QuestionCode string   `json:"questionCode,omitempty" yaml:"questionCode,omitempty"`
	QuestionText string   `json:"questionText,omitempty" yaml:"questionText,omitempty"`
	Response     string   `json:"response" yaml:"response"`
	Responses    []string `json:"responses,omitempty" yaml:"responses,omitempty"`
}

type Address struct {
	Line1      string `json:"line1" yaml:"line1"`
	Line2      string `json:"line2,omitempty" yaml:"line2,omitempty"`
	City       string `json:"city" yaml:"city"`
	Region     string `json:"region" yaml:"region"`
	PostalCode string `json:"postalCode" yaml:"postalCode"`
	Country    string `json:"country" yaml:"country"`
}

// UserInfo is the contact and reporter information collected last.
type UserInfo struct {
	FirstName     string   `json:"firstName" yaml:"firstName"`
	LastName      string   `json:"lastName" yaml:"lastName"`
	Email         string   `json:"email" yaml:"email"`
	Phone         string   `json:"phone,omitempty" yaml:"phone,omitempty"`
	ReporterType  string   `json:"reporterType,omitempty" yaml:"reporterType,omitempty"`
	Address       *Address `json:"selectedAddress,omitempty" yaml:"selectedAddress,omitempty"`
	ProductReturn *bool    `json:"productReturn,omitempty" yaml:"productReturn,omitempty"`
}

// IssueFlags describe edge cases reported alongside the issue category.
type IssueFlags struct {
	IssueDuringWarmup    bool `json:"issueDuringWarmup" yaml:"issueDuringWarmup"`
	IssueLastsOverAnHour bool `json:"issueLastsOverAnHour" yaml:"issueLastsOverAnHour"`
	SkipInsertionDate    bool `json:"skipInsertionDate" yaml:"skipInsertionDate"`
}

// CollectedData holds the answers that end up in the support case. Empty
// strings and nil values mean the answer is absent. ProductType is a pointer
// because an empty lookup result is still an answer.
type CollectedData struct {
	Reporter                *Profile        `json:"reporter,omitempty" yaml:"reporter,omitempty"`
	SelectedPatient         *Profile        `json:"selectedPatient,omitempty" yaml:"selectedPatient,omitempty"`
	PatientDetails          *PatientDetails `json:"patientDetails,omitempty" yaml:"patientDetails,omitempty"`
	InsertionSite           string          `json:"insertionSite,omitempty" yaml:"insertionSite,omitempty"`
	IssueDate               string          `json:"issueDate,omitempty" yaml:"issueDate,omitempty"`
	IssueCategory           string          `json:"issueCategory,omitempty" yaml:"issueCategory,omitempty"`
	SpecifiedProductDetails *ProductDetails `json:"specifiedProductDetails,omitempty" yaml:"specifiedProductDetails,omitempty"`
	ProductType             *string         `json:"productType,omitempty" yaml:"productType,omitempty"`
	ProductReturn           *bool           `json:"productReturn,omitempty" yaml:"productReturn,omitempty"`
	TSGInterview            []TSGAnswer     `json:"tsgInterview,omitempty" yaml:"tsgInterview,omitempty"`
	UserInfo                *UserInfo       `json:"userInfo,omitempty" yaml:"userInfo,omitempty"`
}

// TransientFormData is working data that is never submitted.
type TransientFormData struct {
	PreventAutoSubmit bool                       `json:"preventAutoSubmit,omitempty" yaml:"preventAutoSubmit,omitempty"`
	SentinelProducts  map[string]SentinelProduct `json:"sentinelProducts,omitempty" yaml:"sentinelProducts,omitempty"`
}

// Display is the set of visibility flags consumed by the presentation layer.
type Display struct {
	SupportFormBackButton              bool `json:"supportFormBackButton"`
	SupportFormNavigateAway            bool `json:"supportFormNavigateAway"`
	SupportFormProgress                bool `json:"supportFormProgress"`
	SelectPatient                      bool `json:"selectPatient"`
	GuestStartSupportTicket            bool `json:"guestStartSupportTicket"`
	SupportModal                       bool `json:"supportModal"`
	InsertLocationSelector             bool `json:"insertLocationSelector"`
	DateInputIssue                     bool `json:"dateInputIssue"`
	IssueCategorySelectorWithTimeModal bool `json:"issueCategorySelectorWithTimeModal"`
	SupportSelectMyProduct             bool `json:"supportSelectMyProduct"`
	SpecifyProduct                     bool `json:"specifyProduct"`
	TSGInterview                       bool `json:"tsgInterview"`
	CollectAuthUserInfo                bool `json:"collectAuthUserInfo"`
	CollectGuestUserInfo               bool `json:"collectGuestUserInfo"`
	SupportSubmitModal                 bool `json:"supportSubmitModal"`
}

// State is the wizard aggregate. The machine never mutates a State it was
// given; every transition returns a new value.
type State struct {
	Mode                  Mode              `json:"mode" yaml:"mode"`
	Step                  Step              `json:"step" yaml:"step"`
	Collected             CollectedData     `json:"collectedData" yaml:"collectedData"`
	Transient             TransientFormData `json:"transientFormData" yaml:"transientFormData"`
	Flags                 IssueFlags        `json:"flags" yaml:"flags"`
	Progress              int               `json:"progress" yaml:"progress"`
	StepHistory           []Step            `json:"stepHistory" yaml:"stepHistory"`
	SideEffect            SideEffect        `json:"sideEffect,omitempty" yaml:"sideEffect,omitempty"`
	TS                    int64             `json:"ts,omitempty" yaml:"ts,omitempty"`
	SubmissionError       string            `json:"submissionError,omitempty" yaml:"submissionError,omitempty"`
	OpenNavigateAwayModal bool              `json:"openNavigateAwayModal" yaml:"openNavigateAwayModal"`
	Display               Display           `json:"display" yaml:"-"`
}

// NewState returns the state of a freshly mounted wizard session.
func NewState(mode Mode) State {
	s := State{Mode: mode, Step: StepUninitialized, StepHistory: []Step{}}
	s.Display = ProjectDisplay(s)
	return s
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	s.Collected = s.Collected.clone()
	s.Transient = s.Transient.clone()
	if s.StepHistory != nil {
		s.StepHistory = append([]Step(nil), s.StepHistory...)
	}
	return s
}

// Terminal reports whether the session has reached a final outcome.
func (s State) Terminal() bool {
	if s.Step == StepConfirmSubmission && s.SubmissionError == "" {
		return true
	}
	return s.SideEffect == SideEffectRedirectToSupportLandingPage
}

func (c CollectedData) clone() CollectedData {
	c.Reporter = c.Reporter.clone()
	c.SelectedPatient = c.SelectedPatient.clone()
	if c.PatientDetails != nil {
		pd := *c.PatientDetails
		c.PatientDetails = &pd
	}
	if c.SpecifiedProductDetails != nil {
		pd := *c.SpecifiedProductDetails
		c.SpecifiedProductDetails = &pd
	}
	if c.ProductType != nil {
		v := *c.ProductType
		c.ProductType = &v
	}
	if c.ProductReturn != nil {
		v := *c.ProductReturn
		c.ProductReturn = &v
	}
	if c.TSGInterview != nil {
		answers := make([]TSGAnswer, len(c.TSGInterview))
		for i, a := range c.TSGInterview {
			if a.Responses != nil {
				a.Responses = append([]string(nil), a.Responses...)
			}
			answers[i] = a
		}
		c.TSGInterview = answers
	}
	if c.UserInfo != nil {
		ui := *c.UserInfo
		if ui.Address != nil {
			addr := *ui.Address
			ui.Address = &addr
		}
		if ui.ProductReturn != nil {
			v := *ui.ProductReturn
			ui.ProductReturn = &v
		}
		c.UserInfo = &ui
	}
	return c
}

func (t TransientFormData) clone() TransientFormData {
	if t.SentinelProducts != nil {
		products := make(map[string]SentinelProduct, len(t.SentinelProducts))
		for k, v := range t.SentinelProducts {
			products[k] = v
		}
		t.SentinelProducts = products
	}
	return t
}
