package flow

// ProjectDisplay derives the visibility flags from step, mode and collected
// data. It is total and idempotent.
func ProjectDisplay(s State) Display {
	step := s.Step
	between := func(from, until Step) bool { return step >= from && step < until }
	oneOf := func(steps ...Step) bool {
		for _, candidate := range steps {
			if step == candidate {
				return true
			}
		}
		return false
	}

	authenticatedOnBehalf := s.Mode == ModeCaregiver || s.Mode == ModeDependent
	userInfo := oneOf(StepCollectUserInfo, StepConfirmSubmission)

	return Display{
		SupportFormBackButton:              !oneOf(StepSelectPatient, StepGuestStart),
		SupportFormNavigateAway:            !oneOf(StepSelectPatient, StepGuestStart, StepAcknowledgeNotSAE, StepConfirmSubmission),
		SupportFormProgress:                step != StepGuestStart,
		SelectPatient:                      step == StepSelectPatient,
		GuestStartSupportTicket:            step == StepGuestStart,
		SupportModal:                       step == StepAcknowledgeNotSAE,
		InsertLocationSelector:             between(StepSelectInsertionSite, StepTSGInterview),
		DateInputIssue:                     between(StepSelectIssueDate, StepTSGInterview),
		IssueCategorySelectorWithTimeModal: between(StepSelectIssueCategory, StepTSGInterview),
		SupportSelectMyProduct:             oneOf(StepSelectSentinelProduct, StepSentinelShowSpecifyProduct),
		SpecifyProduct:                     oneOf(StepSpecifyProduct, StepSentinelShowSpecifyProduct),
		TSGInterview:                       step == StepTSGInterview,
		CollectAuthUserInfo:                userInfo && authenticatedOnBehalf && s.Collected.SelectedPatient != nil,
		CollectGuestUserInfo:               userInfo && !authenticatedOnBehalf,
		SupportSubmitModal:                 step == StepConfirmSubmission,
	}
}
