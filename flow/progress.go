package flow

// ProgressTable maps steps to a completion percentage.
type ProgressTable map[Step]int

// DefaultProgress returns a copy of the wizard's progress table.
func DefaultProgress() ProgressTable {
	return ProgressTable{
		StepGuestStart:            5,
		StepSelectPatient:         5,
		StepAcknowledgeNotSAE:     10,
		StepSelectInsertionSite:   20,
		StepSelectIssueDate:       40,
		StepSelectIssueCategory:   50,
		StepSelectSentinelProduct: 60,
		StepSpecifyProduct:        60,
		StepTSGInterview:          70,
		StepCollectUserInfo:       80,
		StepConfirmSubmission:     100,
	}
}

// Project returns the progress for step, keeping previous for steps that
// are not in the table.
func (t ProgressTable) Project(step Step, previous int) int {
	if v, ok := t[step]; ok {
		return v
	}
	return previous
}

func (t ProgressTable) clone() ProgressTable {
	out := make(ProgressTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
