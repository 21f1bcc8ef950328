package flow

// StepSet is a set of steps.
type StepSet map[Step]struct{}

func NewStepSet(steps ...Step) StepSet {
	set := make(StepSet, len(steps))
	for _, s := range steps {
		set[s] = struct{}{}
	}
	return set
}

func (s StepSet) Has(step Step) bool {
	_, ok := s[step]
	return ok
}

// DefaultWaypoints are the steps back-navigation skips over.
func DefaultWaypoints() StepSet {
	return NewStepSet(
		StepAcknowledgeNotSAE,
		StepSelectInsertionSite,
		StepSelectIssueDate,
		StepSelectSentinelProduct,
		StepSelectIssueCategory,
	)
}

// BackTarget returns the history index GO_BACK lands on, walking back past
// waypoints and entries equal to current. The first entry is never skipped.
func BackTarget(history []Step, current Step, waypoints StepSet) (int, bool) {
	if len(history) == 0 {
		return 0, false
	}
	i := len(history) - 1
	for i > 0 && (waypoints.Has(history[i]) || history[i] == current) {
		i--
	}
	return i, true
}

func goBackStep(m *Machine, s State, _ Action) (State, FieldSet, error) {
	idx, ok := BackTarget(s.StepHistory, s.Step, m.waypoints)
	if !ok {
		return s, 0, nil
	}
	landing := s.StepHistory[idx]
	if landing == m.entryStep {
		next := s.Clone()
		next.OpenNavigateAwayModal = true
		return next, 0, nil
	}
	if landing == s.Step {
		return s, 0, nil
	}

	next := s.Clone()
	next.StepHistory = append([]Step(nil), s.StepHistory[:idx+1]...)
	next.Step = landing
	next.SideEffect = SideEffectScrollToTop
	next.TS = m.nextToken(s.TS)
	next.Progress = m.progress.Project(landing, next.Progress)
	return next, 0, nil
}
