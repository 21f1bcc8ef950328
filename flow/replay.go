package flow

// replayStage re-enters one downstream screen with the answer already on
// file. ready guards the stage; the fold stops at the first stage that is
// not ready.
type replayStage struct {
	action ActionType
	ready  func(s State) bool
	patch  func(m *Machine, s State) (Patch, error)
}

var reacknowledgeStages = []replayStage{
	{
		action: ActionSelectInsertionLocation,
		ready: func(s State) bool {
			return s.Step == StepSelectInsertionSite && s.Collected.InsertionSite != ""
		},
		patch: func(m *Machine, s State) (Patch, error) {
			return selectInsertionLocationPatch(m, s, SelectInsertionLocation{Site: s.Collected.InsertionSite})
		},
	},
	{
		action: ActionSelectIssueDate,
		ready:  func(s State) bool { return s.Collected.IssueDate != "" },
		patch: func(m *Machine, s State) (Patch, error) {
			return selectIssueDatePatch(m, s, SelectIssueDate{Date: s.Collected.IssueDate})
		},
	},
	{
		action: ActionSelectIssueCategory,
		ready:  func(s State) bool { return s.Collected.IssueCategory != "" },
		patch: func(m *Machine, s State) (Patch, error) {
			return selectIssueCategoryPatch(m, s, SelectIssueCategory{Category: s.Collected.IssueCategory, Flags: s.Flags})
		},
	},
}

// replay folds stages over s through the standard pipeline.
func (m *Machine) replay(s State, stages []replayStage) (State, FieldSet, error) {
	var pruned FieldSet
	for _, stage := range stages {
		if !stage.ready(s) {
			break
		}
		patch, err := stage.patch(m, s)
		if err != nil {
			return s, pruned, err
		}
		var more FieldSet
		s, more = m.standardStep(s, patch)
		pruned = pruned.Union(more)
		m.logger.Trace("replayed %s step=%s", stage.action, s.Step)
	}
	return s, pruned, nil
}

func acknowledgeStep(m *Machine, s State, a Action) (State, FieldSet, error) {
	patch, err := acknowledgePatch(m, s, a)
	if err != nil {
		return s, 0, err
	}
	next, pruned := m.standardStep(s, patch)

	replayed, more, err := m.replay(next, reacknowledgeStages)
	if err != nil {
		return s, 0, err
	}
	if len(replayed.StepHistory) != len(next.StepHistory) {
		replayed.StepHistory = dedupeHistory(replayed.StepHistory)
	}
	return replayed, pruned.Union(more), nil
}

// dedupeHistory keeps the last occurrence of every step, so the landing step
// stays last.
func dedupeHistory(history []Step) []Step {
	seen := make(map[Step]bool, len(history))
	out := make([]Step, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		if seen[history[i]] {
			continue
		}
		seen[history[i]] = true
		out = append(out, history[i])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
