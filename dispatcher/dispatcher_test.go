package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-intake/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	actions []flow.Action
	err     error
}

func (r *recordingSink) Dispatch(_ context.Context, a flow.Action) error {
	r.actions = append(r.actions, a)
	return r.err
}

func fixedClock() time.Time {
	return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
}

func TestIntentsProduceOneActionEach(t *testing.T) {
	sink := &recordingSink{}
	d := New(sink, WithClock(fixedClock))
	ctx := context.Background()

	intents := []struct {
		name string
		call func() error
		want flow.ActionType
	}{
		{"initialize", func() error { return d.Initialize(ctx, &flow.Profile{ID: "p"}) }, flow.ActionInitialize},
		{"selectPatient", func() error { return d.SelectPatient(ctx, flow.Profile{ID: "dep"}) }, flow.ActionSelectPatient},
		{"guestRequestSupport", func() error { return d.GuestRequestSupport(ctx) }, flow.ActionGuestRequestSupport},
		{"acknowledgeNotSae", func() error { return d.AcknowledgeNotSAE(ctx, true) }, flow.ActionAcknowledgeNotSAE},
		{"selectInsertionLocation", func() error { return d.SelectInsertionLocation(ctx, "arm") }, flow.ActionSelectInsertionLocation},
		{"selectIssueDate", func() error { return d.SelectIssueDate(ctx, "10/01/2026", "en-US") }, flow.ActionSelectIssueDate},
		{"setSentinelProducts", func() error { return d.SetSentinelProducts(ctx, nil, nil, "2026-10-01") }, flow.ActionSetSentinelProducts},
		{"setSentinelManualInput", func() error { return d.SetSentinelManualInput(ctx, true) }, flow.ActionSetSentinelManualInput},
		{"selectIssueCategory", func() error { return d.SelectIssueCategory(ctx, "012", flow.IssueFlags{}) }, flow.ActionSelectIssueCategory},
		{"specifyProduct", func() error { return d.SpecifyProduct(ctx, flow.ProductDetails{Generation: "G6"}) }, flow.ActionSpecifyProduct},
		{"specifySentinelProduct", func() error {
			return d.SpecifySentinelProduct(ctx, flow.SentinelProduct{SerialNumber: "SN1", AuditTimeStamp: "2026-09-25T10:00:00.000Z", ProductType: "G7"})
		}, flow.ActionSpecifyProduct},
		{"submitTsgInterview", func() error { return d.SubmitTSGInterview(ctx, []flow.TSGAnswer{{QuestionID: "q1"}}) }, flow.ActionSubmitTSGInterview},
		{"submitUserInfo", func() error { return d.SubmitUserInfo(ctx, flow.UserInfo{FirstName: "Ada"}) }, flow.ActionSubmitUserInfo},
		{"confirmSubmission", func() error { return d.ConfirmSubmission(ctx, "") }, flow.ActionConfirmSubmission},
		{"exitSubmission", func() error { return d.ExitSubmission(ctx) }, flow.ActionExitSubmission},
		{"goBack", func() error { return d.GoBack(ctx) }, flow.ActionGoBack},
		{"returnToGuestStart", func() error { return d.ReturnToGuestStart(ctx) }, flow.ActionReturnToGuestStart},
		{"abandonNavigateAway", func() error { return d.AbandonNavigateAway(ctx) }, flow.ActionAbandonNavigateAway},
		{"debugOverrideState", func() error { return d.DebugOverrideState(ctx, flow.NewState(flow.ModeGuest)) }, flow.ActionDebugOverrideState},
	}

	for i, intent := range intents {
		require.NoError(t, intent.call(), intent.name)
		require.Len(t, sink.actions, i+1, intent.name)
		assert.Equal(t, string(intent.want), sink.actions[i].Type(), intent.name)
	}

	audit := d.Audit()
	require.Len(t, audit, len(intents))
	seen := map[string]bool{}
	for i, entry := range audit {
		assert.Equal(t, intents[i].name, entry.Intent)
		assert.Equal(t, intents[i].want, entry.Action)
		assert.Equal(t, fixedClock(), entry.At)
		assert.NotEmpty(t, entry.ID)
		assert.False(t, seen[entry.ID], "audit ids are unique")
		seen[entry.ID] = true
	}
}

func TestSelectIssueDateConvertsLocale(t *testing.T) {
	tests := []struct {
		name   string
		date   string
		locale string
		want   string
	}{
		{"us", "10/01/2026", "en-US", "2026-10-01"},
		{"canada", "01/10/2026", "en-CA", "2026-10-01"},
		{"underscore locale", "01/10/2026", "fr_CA", "2026-10-01"},
		{"unknown locale uses standard", "2026-10-01", "xx-XX", "2026-10-01"},
		{"unparseable passes through", "next tuesday", "en-US", "next tuesday"},
		{"empty clears", "", "en-US", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			require.NoError(t, New(sink).SelectIssueDate(context.Background(), tt.date, tt.locale))
			assert.Equal(t, tt.want, sink.actions[0].(flow.SelectIssueDate).Date)
		})
	}
}

func TestConvertDatePatterns(t *testing.T) {
	assert.Equal(t, "2026-03-07", ConvertDate("7.3.26", "d.M.yy", "yyyy-MM-dd"))
	assert.Equal(t, "07/03/2026", ConvertDate("2026-03-07", "yyyy-MM-dd", "dd/MM/yyyy"))
	assert.Equal(t, "2006-01-02", goLayout("yyyy-MM-dd"))
}

func TestSpecifySentinelProduct(t *testing.T) {
	sink := &recordingSink{}
	d := New(sink)

	require.NoError(t, d.SpecifySentinelProduct(context.Background(), flow.SentinelProduct{
		SerialNumber:   "SN1",
		AuditTimeStamp: "2026-09-25T23:30:00-02:00",
		ProductType:    "G7",
	}))

	got := sink.actions[0].(flow.SpecifyProduct).Details
	assert.Equal(t, flow.ProductDetails{
		Date:                  "2026-09-26",
		SerialNumber:          "SN1",
		ContinueWithoutSerial: false,
		Generation:            "G7",
	}, got)

	assert.Equal(t, "2026-09-25", ProductFromSentinel(flow.SentinelProduct{AuditTimeStamp: "2026-09-25 10:00"}).Date)
}

func TestInvalidIntentIsNotDispatched(t *testing.T) {
	sink := &recordingSink{}
	d := New(sink)

	err := d.SelectInsertionLocation(context.Background(), " ")
	require.Error(t, err)
	assert.Equal(t, flow.ErrCodeInvalidActionPayload, flow.ErrorCode(err))
	assert.Empty(t, sink.actions)
	assert.Empty(t, d.Audit())
}

func TestSinkErrorIsAudited(t *testing.T) {
	sink := &recordingSink{err: errors.New("session not found")}
	d := New(sink)

	err := d.GoBack(context.Background())
	require.EqualError(t, err, "session not found")

	audit := d.Audit()
	require.Len(t, audit, 1)
	assert.Equal(t, "session not found", audit[0].Error)
}

func TestMissingSink(t *testing.T) {
	err := New(nil).GoBack(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sink configured")
}

func TestAuditLimit(t *testing.T) {
	d := New(&recordingSink{}, WithAuditLimit(2))
	ctx := context.Background()
	require.NoError(t, d.GoBack(ctx))
	require.NoError(t, d.ExitSubmission(ctx))
	require.NoError(t, d.AbandonNavigateAway(ctx))

	audit := d.Audit()
	require.Len(t, audit, 2)
	assert.Equal(t, "exitSubmission", audit[0].Intent)
	assert.Equal(t, "abandonNavigateAway", audit[1].Intent)
}

func TestSubscribe(t *testing.T) {
	d := New(&recordingSink{})
	var got []Entry
	sub := d.Subscribe(func(e Entry) { got = append(got, e) })

	require.NoError(t, d.GoBack(context.Background()))
	sub.Unsubscribe()
	require.NoError(t, d.GoBack(context.Background()))

	require.Len(t, got, 1)
	assert.Equal(t, flow.ActionGoBack, got[0].Action)
}
