package httpapi

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-intake/flow"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountsCommittedTransitions(t *testing.T) {
	m := NewMetrics()
	ctx := context.Background()

	require.NoError(t, m.Notify(ctx, flow.TransitionEvent{
		Phase:       flow.TransitionPhaseAttempted,
		Action:      "SELECT_ISSUE_DATE",
		CurrentStep: flow.StepSelectIssueDate,
	}))
	require.NoError(t, m.Notify(ctx, flow.TransitionEvent{
		Phase:       flow.TransitionPhaseCommitted,
		Action:      "SELECT_ISSUE_DATE",
		CurrentStep: flow.StepSelectIssueCategory,
		Pruned:      flow.NewFieldSet(flow.FieldIssueCategory, flow.FieldProductType),
		SideEffect:  flow.SideEffectFetchSentinelData,
		NewEffect:   true,
	}))
	require.NoError(t, m.Notify(ctx, flow.TransitionEvent{
		Phase:       flow.TransitionPhaseCommitted,
		Action:      "SET_SENTINEL_PRODUCTS",
		CurrentStep: flow.StepSelectIssueCategory,
		SideEffect:  flow.SideEffectFetchSentinelData,
	}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("SELECT_ISSUE_DATE", "SELECT_ISSUE_CATEGORY")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.transitions.WithLabelValues("SELECT_ISSUE_DATE", "SELECT_ISSUE_DATE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pruned.WithLabelValues(flow.FieldIssueCategory.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.effects.WithLabelValues("FETCH_SENTINEL_DATA")), "unchanged effects are not recounted")
}

func TestMetrics_ObserveEffect(t *testing.T) {
	m := NewMetrics()
	m.ObserveEffect(flow.SideEffectSubmitToSFDC, "success", 120*time.Millisecond)
	m.ObserveEffect(flow.SideEffectSubmitToSFDC, "failure", time.Second)

	assert.Equal(t, 2, testutil.CollectAndCount(m.effectDuration))
}
