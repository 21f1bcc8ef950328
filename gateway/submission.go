package gateway

import (
	"context"
	"errors"

	"github.com/goliatone/go-intake/flow"
)

// Ticket is the support case payload built from a finished wizard.
type Ticket struct {
	Mode           flow.Mode            `json:"mode"`
	Reporter       *flow.Profile        `json:"reporter,omitempty"`
	Patient        *flow.Profile        `json:"patient,omitempty"`
	PatientDetails *flow.PatientDetails `json:"patientDetails,omitempty"`
	InsertionSite  string               `json:"insertionSite,omitempty"`
	IssueDate      string               `json:"issueDate,omitempty"`
	IssueCategory  string               `json:"issueCategory"`
	ProductType    string               `json:"productType,omitempty"`
	Product        *flow.ProductDetails `json:"product,omitempty"`
	ProductReturn  *bool                `json:"productReturn,omitempty"`
	TSGInterview   []flow.TSGAnswer     `json:"tsgInterview,omitempty"`
	UserInfo       *flow.UserInfo       `json:"userInfo,omitempty"`
	Flags          flow.IssueFlags      `json:"flags"`
}

func (Ticket) Type() string { return "support.case.submit" }

func (t Ticket) Validate() error {
	if !t.Mode.Valid() {
		return errors.New("ticket mode required")
	}
	if t.IssueCategory == "" {
		return errors.New("ticket issue category required")
	}
	if t.UserInfo == nil {
		return errors.New("ticket user info required")
	}
	return nil
}

// NewTicket projects the collected answers of s into a ticket. The
// insertion site is rendered as its case label.
func NewTicket(s flow.State, catalog *flow.Catalog) Ticket {
	if catalog == nil {
		catalog = flow.DefaultCatalog()
	}
	s = s.Clone()
	c := s.Collected
	t := Ticket{
		Mode:           s.Mode,
		Reporter:       c.Reporter,
		Patient:        c.SelectedPatient,
		PatientDetails: c.PatientDetails,
		IssueDate:      c.IssueDate,
		IssueCategory:  c.IssueCategory,
		Product:        c.SpecifiedProductDetails,
		ProductReturn:  c.ProductReturn,
		TSGInterview:   c.TSGInterview,
		UserInfo:       c.UserInfo,
		Flags:          s.Flags,
	}
	if c.InsertionSite != "" {
		t.InsertionSite = catalog.InsertionLocationLabel(c.InsertionSite)
	}
	if c.ProductType != nil {
		t.ProductType = *c.ProductType
	}
	return t
}

// SubmissionClient files support cases.
type SubmissionClient struct {
	client
}

func NewSubmissionClient(baseURL string, opts ...ClientOption) *SubmissionClient {
	return &SubmissionClient{client: newClient(baseURL, opts...)}
}

// Execute posts t. Any non-2xx response is an error.
func (c *SubmissionClient) Execute(ctx context.Context, t Ticket) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := c.do(ctx, "case submission", "POST", "/v1/support/cases", t, nil); err != nil {
		return err
	}
	c.logger.Info("support case submitted category=%s mode=%s", t.IssueCategory, t.Mode)
	return nil
}
