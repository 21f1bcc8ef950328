package flow

// Opt is an optional patch value. Only set values are merged.
type Opt[T any] struct {
	Set   bool
	Value T
}

func Some[T any](v T) Opt[T] { return Opt[T]{Set: true, Value: v} }

func (o Opt[T]) apply(dst *T) {
	if o.Set {
		*dst = o.Value
	}
}

// CollectedPatch carries new answers for CollectedData.
type CollectedPatch struct {
	Reporter                Opt[*Profile]
	SelectedPatient         Opt[*Profile]
	PatientDetails          Opt[*PatientDetails]
	InsertionSite           Opt[string]
	IssueDate               Opt[string]
	IssueCategory           Opt[string]
	SpecifiedProductDetails Opt[*ProductDetails]
	ProductType             Opt[*string]
	ProductReturn           Opt[*bool]
	TSGInterview            Opt[[]TSGAnswer]
	UserInfo                Opt[*UserInfo]
}

type TransientPatch struct {
	PreventAutoSubmit Opt[bool]
	SentinelProducts  Opt[map[string]SentinelProduct]
}

// Patch is the delta a transition produces. The machine prunes stale answers
// before merging it.
type Patch struct {
	Mode                  Opt[Mode]
	Step                  Opt[Step]
	Collected             CollectedPatch
	Transient             TransientPatch
	Flags                 Opt[IssueFlags]
	Progress              Opt[int]
	SideEffect            Opt[SideEffect]
	SubmissionError       Opt[string]
	OpenNavigateAwayModal Opt[bool]
}

// IsEmpty reports whether the patch carries nothing to merge.
func (p Patch) IsEmpty() bool {
	c := p.Collected
	return !(p.Mode.Set || p.Step.Set || p.Flags.Set || p.Progress.Set ||
		p.SideEffect.Set || p.SubmissionError.Set || p.OpenNavigateAwayModal.Set ||
		p.Transient.PreventAutoSubmit.Set || p.Transient.SentinelProducts.Set ||
		c.Reporter.Set || c.SelectedPatient.Set || c.PatientDetails.Set ||
		c.InsertionSite.Set || c.IssueDate.Set || c.IssueCategory.Set ||
		c.SpecifiedProductDetails.Set || c.ProductType.Set || c.ProductReturn.Set ||
		c.TSGInterview.Set || c.UserInfo.Set)
}

func (p CollectedPatch) applyTo(c *CollectedData) {
	p.Reporter.apply(&c.Reporter)
	p.SelectedPatient.apply(&c.SelectedPatient)
	p.PatientDetails.apply(&c.PatientDetails)
	p.InsertionSite.apply(&c.InsertionSite)
	p.IssueDate.apply(&c.IssueDate)
	p.IssueCategory.apply(&c.IssueCategory)
	p.SpecifiedProductDetails.apply(&c.SpecifiedProductDetails)
	p.ProductType.apply(&c.ProductType)
	p.ProductReturn.apply(&c.ProductReturn)
	if p.TSGInterview.Set {
		c.TSGInterview = p.TSGInterview.Value
		if len(c.TSGInterview) == 0 {
			c.TSGInterview = nil
		}
	}
	p.UserInfo.apply(&c.UserInfo)
}

func (p TransientPatch) applyTo(t *TransientFormData) {
	p.PreventAutoSubmit.apply(&t.PreventAutoSubmit)
	if p.SentinelProducts.Set {
		t.SentinelProducts = p.SentinelProducts.Value
		if len(t.SentinelProducts) == 0 {
			t.SentinelProducts = nil
		}
	}
}

func (p Patch) applyTo(s *State) {
	p.Mode.apply(&s.Mode)
	p.Step.apply(&s.Step)
	p.Collected.applyTo(&s.Collected)
	p.Transient.applyTo(&s.Transient)
	p.Flags.apply(&s.Flags)
	p.Progress.apply(&s.Progress)
	p.SideEffect.apply(&s.SideEffect)
	p.SubmissionError.apply(&s.SubmissionError)
	p.OpenNavigateAwayModal.apply(&s.OpenNavigateAwayModal)
}

// candidate returns s with only the observed parts of the patch merged. It is
// used to compare values before anything is pruned.
func (p Patch) candidate(s State) State {
	next := s.Clone()
	p.Collected.applyTo(&next.Collected)
	p.Transient.applyTo(&next.Transient)
	p.Flags.apply(&next.Flags)
	return next
}
