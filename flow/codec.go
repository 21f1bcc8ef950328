package flow

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Envelope is the wire form of an action: {"type": ..., "value": ...}.
type Envelope struct {
	Type  string `json:"type" yaml:"type"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
}

type sentinelProductsValue struct {
	MapOfSerials map[string]SentinelProduct `json:"mapOfSerials"`
	UserData     *SentinelUserData          `json:"userData,omitempty"`
	IssueDate    string                     `json:"issueDate,omitempty"`
}

type issueCategoryValue struct {
	IssueCategory string     `json:"issueCategory"`
	Flags         IssueFlags `json:"flags"`
}

type submissionValue struct {
	Error string `json:"error,omitempty"`
}

// DecodeAction builds a typed action from its wire type and a generic value
// as produced by encoding/json or yaml.v3.
func DecodeAction(actionType string, value any) (Action, error) {
	switch ActionType(strings.ToUpper(strings.TrimSpace(actionType))) {
	case ActionInitialize:
		if value == nil {
			return Initialize{}, nil
		}
		var p Profile
		if err := decodeValue(value, &p); err != nil {
			return nil, payloadError(actionType, err)
		}
		return Initialize{Profile: &p}, nil
	case ActionSelectPatient:
		var p Profile
		if err := decodeValue(value, &p); err != nil {
			return nil, payloadError(actionType, err)
		}
		return SelectPatient{Patient: p}, nil
	case ActionGuestRequestSupport:
		return GuestRequestSupport{}, nil
	case ActionAcknowledgeNotSAE:
		var accepted bool
		if err := decodeValue(value, &accepted); err != nil {
			return nil, payloadError(actionType, err)
		}
		return AcknowledgeNotSAE{Accepted: accepted}, nil
	case ActionSelectInsertionLocation:
		var site string
		if err := decodeValue(value, &site); err != nil {
			return nil, payloadError(actionType, err)
		}
		return SelectInsertionLocation{Site: site}, nil
	case ActionSelectIssueDate:
		var date string
		if value != nil {
			if err := decodeValue(value, &date); err != nil {
				return nil, payloadError(actionType, err)
			}
		}
		return SelectIssueDate{Date: date}, nil
	case ActionSetSentinelProducts:
		var v sentinelProductsValue
		if err := decodeValue(value, &v); err != nil {
			return nil, payloadError(actionType, err)
		}
		return SetSentinelProducts{Products: v.MapOfSerials, UserData: v.UserData, FetchedFor: v.IssueDate}, nil
	case ActionSetSentinelManualInput:
		var manual bool
		if err := decodeValue(value, &manual); err != nil {
			return nil, payloadError(actionType, err)
		}
		return SetSentinelManualInput{Manual: manual}, nil
	case ActionSelectIssueCategory:
		var v issueCategoryValue
		if s, ok := value.(string); ok {
			v.IssueCategory = s
		} else if err := decodeValue(value, &v); err != nil {
			return nil, payloadError(actionType, err)
		}
		return SelectIssueCategory{Category: v.IssueCategory, Flags: v.Flags}, nil
	case ActionSpecifyProduct:
		var d ProductDetails
		if err := decodeValue(value, &d); err != nil {
			return nil, payloadError(actionType, err)
		}
		return SpecifyProduct{Details: d}, nil
	case ActionSubmitTSGInterview:
		var answers []TSGAnswer
		if err := decodeValue(value, &answers); err != nil {
			return nil, payloadError(actionType, err)
		}
		return SubmitTSGInterview{Answers: answers}, nil
	case ActionSubmitUserInfo:
		var info UserInfo
		if err := decodeValue(value, &info); err != nil {
			return nil, payloadError(actionType, err)
		}
		return SubmitUserInfo{Info: info}, nil
	case ActionConfirmSubmission:
		var v submissionValue
		switch typed := value.(type) {
		case nil:
		case string:
			v.Error = typed
		default:
			if err := decodeValue(value, &v); err != nil {
				return nil, payloadError(actionType, err)
			}
		}
		return ConfirmSubmission{Error: v.Error}, nil
	case ActionExitSubmission:
		return ExitSubmission{}, nil
	case ActionGoBack:
		return GoBack{}, nil
	case ActionReturnToGuestStart:
		return ReturnToGuestStart{}, nil
	case ActionAbandonNavigateAway:
		return AbandonNavigateAway{}, nil
	case ActionDebugOverrideState:
		var s State
		if err := decodeValue(value, &s); err != nil {
			return nil, payloadError(actionType, err)
		}
		return DebugOverrideState{State: s}, nil
	}
	return nil, cloneRuntimeError(ErrUnknownAction, fmt.Sprintf("unknown action %q", actionType), nil, map[string]any{
		"action": actionType,
	})
}

// DecodeEnvelope decodes a wire envelope.
func DecodeEnvelope(env Envelope) (Action, error) {
	return DecodeAction(env.Type, env.Value)
}

// EncodeAction returns the wire envelope of a.
func EncodeAction(a Action) Envelope {
	env := Envelope{Type: a.Type()}
	switch act := a.(type) {
	case Initialize:
		if act.Profile != nil {
			env.Value = *act.Profile
		}
	case SelectPatient:
		env.Value = act.Patient
	case AcknowledgeNotSAE:
		env.Value = act.Accepted
	case SelectInsertionLocation:
		env.Value = act.Site
	case SelectIssueDate:
		env.Value = act.Date
	case SetSentinelProducts:
		env.Value = sentinelProductsValue{MapOfSerials: act.Products, UserData: act.UserData, IssueDate: act.FetchedFor}
	case SetSentinelManualInput:
		env.Value = act.Manual
	case SelectIssueCategory:
		env.Value = issueCategoryValue{IssueCategory: act.Category, Flags: act.Flags}
	case SpecifyProduct:
		env.Value = act.Details
	case SubmitTSGInterview:
		env.Value = act.Answers
	case SubmitUserInfo:
		env.Value = act.Info
	case ConfirmSubmission:
		if act.Error != "" {
			env.Value = submissionValue{Error: act.Error}
		}
	case DebugOverrideState:
		env.Value = act.State
	}
	return env
}

func decodeValue(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       stepDecodeHook,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

var stepType = reflect.TypeOf(Step(0))

func stepDecodeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != stepType || from.Kind() != reflect.String {
		return data, nil
	}
	return ParseStep(reflect.ValueOf(data).String())
}

func payloadError(actionType string, err error) error {
	return cloneRuntimeError(ErrInvalidActionPayload, fmt.Sprintf("decode %s payload", actionType), err, map[string]any{
		"action": actionType,
	})
}
