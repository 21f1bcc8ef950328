package flow

import "strings"

// patchFunc is a pure transition producing the delta for one action.
type patchFunc func(m *Machine, s State, a Action) (Patch, error)

// stepFunc produces the complete next state and the fields it discarded.
type stepFunc func(m *Machine, s State, a Action) (State, FieldSet, error)

func (m *Machine) transitionTable() map[ActionType]stepFunc {
	return map[ActionType]stepFunc{
		ActionInitialize:              standard(initializePatch),
		ActionSelectPatient:           standard(selectPatientPatch),
		ActionGuestRequestSupport:     standard(guestRequestSupportPatch),
		ActionAcknowledgeNotSAE:       acknowledgeStep,
		ActionSelectInsertionLocation: standard(selectInsertionLocationPatch),
		ActionSelectIssueDate:         standard(selectIssueDatePatch),
		ActionSetSentinelProducts:     standard(setSentinelProductsPatch),
		ActionSetSentinelManualInput:  standard(setSentinelManualInputPatch),
		ActionSelectIssueCategory:     standard(selectIssueCategoryPatch),
		ActionSpecifyProduct:          standard(specifyProductPatch),
		ActionSubmitTSGInterview:      standard(submitTSGInterviewPatch),
		ActionSubmitUserInfo:          standard(submitUserInfoPatch),
		ActionConfirmSubmission:       standard(confirmSubmissionPatch),
		ActionExitSubmission:          standard(exitSubmissionPatch),
		ActionGoBack:                  goBackStep,
		ActionReturnToGuestStart:      returnToGuestStartStep,
		ActionAbandonNavigateAway:     abandonNavigateAwayStep,
		ActionDebugOverrideState:      debugOverrideStep,
	}
}

func standard(fn patchFunc) stepFunc {
	return func(m *Machine, s State, a Action) (State, FieldSet, error) {
		patch, err := fn(m, s, a)
		if err != nil {
			return s, 0, err
		}
		next, pruned := m.standardStep(s, patch)
		return next, pruned, nil
	}
}

// standardStep prunes, merges, projects progress and records the step.
func (m *Machine) standardStep(s State, patch Patch) (State, FieldSet) {
	if patch.IsEmpty() {
		return s, 0
	}
	next, pruned := m.pruner.Apply(s, patch)
	if patch.SideEffect.Set {
		next.TS = m.nextToken(s.TS)
	}
	if !patch.Progress.Set {
		next.Progress = m.progress.Project(next.Step, next.Progress)
	}
	next.StepHistory = appendStep(next.StepHistory, next.Step)
	return next, pruned
}

func appendStep(history []Step, step Step) []Step {
	if n := len(history); n > 0 && history[n-1] == step {
		return history
	}
	out := make([]Step, len(history), len(history)+1)
	copy(out, history)
	return append(out, step)
}

func initializePatch(_ *Machine, s State, a Action) (Patch, error) {
	act := a.(Initialize)
	if s.Mode == ModeGuest {
		return Patch{Step: Some(StepGuestStart)}, nil
	}
	if act.Profile == nil {
		return Patch{}, cloneRuntimeError(ErrMissingProfile, "", nil, map[string]any{
			"mode": string(s.Mode),
		})
	}
	profile := act.Profile.clone()
	if profile.HasDependents() {
		return Patch{
			Step:      Some(StepSelectPatient),
			Collected: CollectedPatch{Reporter: Some(profile)},
		}, nil
	}
	return Patch{
		Step: Some(StepAcknowledgeNotSAE),
		Collected: CollectedPatch{
			Reporter:        Some(profile),
			SelectedPatient: Some(profile.clone()),
		},
	}, nil
}

func selectPatientPatch(_ *Machine, _ State, a Action) (Patch, error) {
	act := a.(SelectPatient)
	mode := ModeCaregiver
	if strings.EqualFold(act.Patient.AccountType, AccountTypeDependent) {
		mode = ModeDependent
	}
	return Patch{
		Mode:      Some(mode),
		Step:      Some(StepAcknowledgeNotSAE),
		Collected: CollectedPatch{SelectedPatient: Some(act.Patient.clone())},
	}, nil
}

func guestRequestSupportPatch(_ *Machine, _ State, _ Action) (Patch, error) {
	return Patch{Step: Some(StepAcknowledgeNotSAE)}, nil
}

func acknowledgePatch(_ *Machine, s State, a Action) (Patch, error) {
	if a.(AcknowledgeNotSAE).Accepted {
		return Patch{
			Step: Some(StepSelectInsertionSite),
			Transient: TransientPatch{
				PreventAutoSubmit: Some(true),
				SentinelProducts:  keepProducts(s),
			},
		}, nil
	}
	return Patch{
		SideEffect: Some(SideEffectRedirectToSupportLandingPage),
		Progress:   Some(20),
	}, nil
}

func selectInsertionLocationPatch(_ *Machine, _ State, a Action) (Patch, error) {
	return Patch{
		Step:      Some(StepSelectIssueDate),
		Collected: CollectedPatch{InsertionSite: Some(a.(SelectInsertionLocation).Site)},
	}, nil
}

func selectIssueDatePatch(_ *Machine, s State, a Action) (Patch, error) {
	if s.Collected.InsertionSite == "" {
		return Patch{}, nil
	}
	date := strings.TrimSpace(a.(SelectIssueDate).Date)
	if date == "" {
		return Patch{
			Step:      Some(StepSelectIssueDate),
			Collected: CollectedPatch{IssueDate: Some("")},
		}, nil
	}
	transient := TransientPatch{PreventAutoSubmit: Some(false)}
	if date == s.Collected.IssueDate {
		transient.SentinelProducts = keepProducts(s)
	}
	return Patch{
		Step:       Some(StepSelectIssueCategory),
		SideEffect: Some(SideEffectFetchSentinelData),
		Collected:  CollectedPatch{IssueDate: Some(date)},
		Transient:  transient,
	}, nil
}

// keepProducts carries the fetched products over a transient update, which
// the pruner otherwise clears as a whole.
func keepProducts(s State) Opt[map[string]SentinelProduct] {
	return Some(s.Transient.clone().SentinelProducts)
}

// setSentinelProductsPatch drops results whose issue date is no longer the
// current one; the pruner already discarded what they belonged to.
func setSentinelProductsPatch(m *Machine, s State, a Action) (Patch, error) {
	act := a.(SetSentinelProducts)
	current := s.Collected.IssueDate
	if current == "" || (act.FetchedFor != "" && act.FetchedFor != current) {
		m.logger.Warn("dropping late sentinel result fetched_for=%s issue_date=%s", act.FetchedFor, current)
		return Patch{}, nil
	}

	products := make(map[string]SentinelProduct, len(act.Products))
	for serial, p := range act.Products {
		products[serial] = p
	}
	patch := Patch{Transient: TransientPatch{SentinelProducts: Some(products)}}
	if act.UserData != nil {
		patch.Collected.PatientDetails = Some(&PatientDetails{
			Weight:          act.UserData.Weight.Value,
			WeightUnit:      strings.ToLower(act.UserData.Weight.Unit),
			ConnectedDevice: act.UserData.ConnectedDevice,
			Gender:          strings.ToLower(act.UserData.Gender),
		})
	}
	return patch, nil
}

func setSentinelManualInputPatch(_ *Machine, _ State, a Action) (Patch, error) {
	if a.(SetSentinelManualInput).Manual {
		return Patch{Step: Some(StepSentinelShowSpecifyProduct)}, nil
	}
	return Patch{Step: Some(StepSelectSentinelProduct)}, nil
}

// selectIssueCategoryPatch always records the category. Blocked categories
// keep the user on the category screen.
func selectIssueCategoryPatch(m *Machine, s State, a Action) (Patch, error) {
	act := a.(SelectIssueCategory)
	patch := Patch{
		Collected: CollectedPatch{IssueCategory: Some(act.Category)},
		Flags:     Some(act.Flags),
	}
	if !m.catalog.CanProceed(act.Category, act.Flags) {
		return patch, nil
	}
	offerProducts := m.catalog.OffersDeviceHistory(act.Category) && len(s.Transient.SentinelProducts) > 0
	if offerProducts {
		patch.Step = Some(StepSelectSentinelProduct)
	} else {
		patch.Step = Some(StepSpecifyProduct)
	}
	return patch, nil
}

func specifyProductPatch(m *Machine, s State, a Action) (Patch, error) {
	details := a.(SpecifyProduct).Details
	category := m.catalog.RecodeCategory(s.Collected.IssueCategory, details.Generation)
	generation := m.catalog.NormalizeGeneration(details.Generation)
	if s.Flags.SkipInsertionDate {
		details.Date = s.Collected.IssueDate
	}
	productType := m.catalog.ProductType(generation, category)

	return Patch{
		Step: Some(StepTSGInterview),
		// the recode must not reset the flags reported with the category
		Flags: Some(s.Flags),
		Collected: CollectedPatch{
			IssueCategory:           Some(category),
			SpecifiedProductDetails: Some(&details),
			ProductType:             Some(&productType),
		},
	}, nil
}

func submitTSGInterviewPatch(_ *Machine, _ State, a Action) (Patch, error) {
	answers := a.(SubmitTSGInterview).Answers
	copied := make([]TSGAnswer, len(answers))
	for i, answer := range answers {
		if answer.Responses != nil {
			answer.Responses = append([]string(nil), answer.Responses...)
		}
		copied[i] = answer
	}
	return Patch{
		Step:      Some(StepCollectUserInfo),
		Collected: CollectedPatch{TSGInterview: Some(copied)},
	}, nil
}

func submitUserInfoPatch(_ *Machine, _ State, a Action) (Patch, error) {
	act := a.(SubmitUserInfo)
	info := CollectedData{UserInfo: &act.Info}.clone().UserInfo
	patch := Patch{
		SideEffect: Some(SideEffectSubmitToSFDC),
		Progress:   Some(90),
		Collected:  CollectedPatch{UserInfo: Some(info)},
	}
	if info.ProductReturn != nil {
		v := *info.ProductReturn
		patch.Collected.ProductReturn = Some(&v)
	}
	return patch, nil
}

func confirmSubmissionPatch(_ *Machine, _ State, a Action) (Patch, error) {
	return Patch{
		Step:            Some(StepConfirmSubmission),
		SubmissionError: Some(a.(ConfirmSubmission).Error),
	}, nil
}

func exitSubmissionPatch(_ *Machine, _ State, _ Action) (Patch, error) {
	return Patch{SideEffect: Some(SideEffectRedirectToSupportLandingPage)}, nil
}

func abandonNavigateAwayStep(_ *Machine, s State, _ Action) (State, FieldSet, error) {
	next := s.Clone()
	next.OpenNavigateAwayModal = false
	return next, 0, nil
}

func debugOverrideStep(_ *Machine, _ State, a Action) (State, FieldSet, error) {
	return a.(DebugOverrideState).State.Clone(), 0, nil
}

func returnToGuestStartStep(m *Machine, s State, _ Action) (State, FieldSet, error) {
	pruned := PresentFields(s)
	next := s.Clone()
	next.Collected = CollectedData{}
	next.Transient = TransientFormData{}
	next.Flags = IssueFlags{}
	next.OpenNavigateAwayModal = false
	next.Step = m.entryStep
	next.Progress = m.progress.Project(next.Step, next.Progress)
	next.StepHistory = []Step{m.entryStep}
	return next, pruned, nil
}
