package flow

import (
	"fmt"
	"math/bits"
	"reflect"
	"strings"
)

// Field is an observed path of the wizard state that can be invalidated.
type Field uint8

const (
	FieldSelectedPatient Field = iota
	FieldPatientDetails
	FieldInsertionSite
	FieldIssueDate
	FieldIssueCategory
	FieldSpecifiedProductDetails
	FieldProductType
	FieldProductReturn
	FieldTSGInterview
	FieldUserInfo
	FieldTransientFormData
	FieldFlags

	fieldCount
)

var fieldNames = [fieldCount]string{
	FieldSelectedPatient:         "selectedPatient",
	FieldPatientDetails:          "patientDetails",
	FieldInsertionSite:           "insertionSite",
	FieldIssueDate:               "issueDate",
	FieldIssueCategory:           "issueCategory",
	FieldSpecifiedProductDetails: "specifiedProductDetails",
	FieldProductType:             "productType",
	FieldProductReturn:           "productReturn",
	FieldTSGInterview:            "tsgInterview",
	FieldUserInfo:                "userInfo",
	FieldTransientFormData:       "transientFormData",
	FieldFlags:                   "flags",
}

// Fields returns every observed field in declaration order.
func Fields() []Field {
	out := make([]Field, 0, fieldCount)
	for f := Field(0); f < fieldCount; f++ {
		out = append(out, f)
	}
	return out
}

func (f Field) Valid() bool { return f < fieldCount }

func (f Field) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Field(%d)", uint8(f))
	}
	return fieldNames[f]
}

// ParseField resolves a field by name, with or without the collectedData prefix.
func ParseField(name string) (Field, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "collectedData.")
	for i, n := range fieldNames {
		if strings.EqualFold(n, name) {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("unknown field %q", name)
}

// FieldSet is a bit set of fields.
type FieldSet uint32

func NewFieldSet(fields ...Field) FieldSet {
	var s FieldSet
	for _, f := range fields {
		s = s.Add(f)
	}
	return s
}

func (s FieldSet) Add(f Field) FieldSet {
	if !f.Valid() {
		return s
	}
	return s | 1<<f
}

func (s FieldSet) Has(f Field) bool {
	return f.Valid() && s&(1<<f) != 0
}

func (s FieldSet) Union(o FieldSet) FieldSet { return s | o }

func (s FieldSet) Len() int { return bits.OnesCount32(uint32(s)) }

func (s FieldSet) Empty() bool { return s == 0 }

// Fields lists the members in declaration order.
func (s FieldSet) Fields() []Field {
	out := make([]Field, 0, s.Len())
	for f := Field(0); f < fieldCount; f++ {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

func (s FieldSet) String() string {
	fields := s.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.String()
	}
	return "[" + strings.Join(names, ",") + "]"
}

// fieldValue returns the comparable value stored at f.
func fieldValue(s *State, f Field) any {
	c := &s.Collected
	switch f {
	case FieldSelectedPatient:
		return c.SelectedPatient
	case FieldPatientDetails:
		return c.PatientDetails
	case FieldInsertionSite:
		return c.InsertionSite
	case FieldIssueDate:
		return c.IssueDate
	case FieldIssueCategory:
		return c.IssueCategory
	case FieldSpecifiedProductDetails:
		return c.SpecifiedProductDetails
	case FieldProductType:
		return c.ProductType
	case FieldProductReturn:
		return c.ProductReturn
	case FieldTSGInterview:
		return c.TSGInterview
	case FieldUserInfo:
		return c.UserInfo
	case FieldTransientFormData:
		return s.Transient
	case FieldFlags:
		return s.Flags
	}
	return nil
}

// fieldPresent reports whether f currently holds an answer.
func fieldPresent(s *State, f Field) bool {
	v := fieldValue(s, f)
	if v == nil {
		return false
	}
	return !reflect.ValueOf(v).IsZero()
}

func clearField(s *State, f Field) {
	c := &s.Collected
	switch f {
	case FieldSelectedPatient:
		c.SelectedPatient = nil
	case FieldPatientDetails:
		c.PatientDetails = nil
	case FieldInsertionSite:
		c.InsertionSite = ""
	case FieldIssueDate:
		c.IssueDate = ""
	case FieldIssueCategory:
		c.IssueCategory = ""
	case FieldSpecifiedProductDetails:
		c.SpecifiedProductDetails = nil
	case FieldProductType:
		c.ProductType = nil
	case FieldProductReturn:
		c.ProductReturn = nil
	case FieldTSGInterview:
		c.TSGInterview = nil
	case FieldUserInfo:
		c.UserInfo = nil
	case FieldTransientFormData:
		s.Transient = TransientFormData{}
	case FieldFlags:
		s.Flags = IssueFlags{}
	}
}

// PresentFields returns the observed fields that currently hold a value.
func PresentFields(s State) FieldSet {
	var set FieldSet
	for f := Field(0); f < fieldCount; f++ {
		if fieldPresent(&s, f) {
			set = set.Add(f)
		}
	}
	return set
}
