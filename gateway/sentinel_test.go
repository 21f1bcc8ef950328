package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-intake/flow"
	"github.com/goliatone/go-intake/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customerJSON = `{
  "serial_number_list": [
    {"serial_number": "SN1", "audit_time_stamp": "2026-09-25T10:00:00Z", "product_type": "G7"},
    {"serial_number": "SN2", "audit_time_stamp": "2026-01-01T10:00:00Z", "product_type": "G7"},
    {"serial_number": "SN3", "audit_time_stamp": "2026-09-26T10:00:00Z", "product_type": "G7_15"}
  ],
  "customer_weight": {"value": 72.5, "unit": "KG"},
  "partners_data": [{"name": "Other"}, {"name": "Omnipod"}],
  "gender": "Female"
}`

func TestSentinelClient_Query(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(customerJSON))
	}))
	defer srv.Close()

	c := NewSentinelClient(srv.URL+"/", WithToken("secret"))
	res, err := c.Query(context.Background(), LookupRequest{GcaID: "gca-1", IssueDate: "2026-10-01", CountryCode: "CA"})
	require.NoError(t, err)

	assert.Equal(t, "/v1/sentinel/customer/gca_id/gca-1", gotPath)
	assert.Equal(t, "partners_source=pump", gotQuery)
	assert.Equal(t, "Bearer secret", gotAuth)

	assert.ElementsMatch(t, []string{"SN1"}, keys(res.Products))
	require.NotNil(t, res.UserData)
	assert.Equal(t, flow.Weight{Value: "72.5", Unit: "KG"}, res.UserData.Weight)
	assert.Equal(t, "None", res.UserData.ConnectedDevice)
	assert.Equal(t, "Female", res.UserData.Gender)

	action := res.Action("2026-10-01")
	assert.Equal(t, "2026-10-01", action.FetchedFor)
	assert.Len(t, action.Products, 1)
}

func TestSentinelClient_MissingOptionalData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"serial_number_list": []}`))
	}))
	defer srv.Close()

	res, err := NewSentinelClient(srv.URL).Query(context.Background(), LookupRequest{GcaID: "gca-1"})
	require.NoError(t, err)
	assert.Empty(t, res.Products)
	assert.Equal(t, &flow.SentinelUserData{}, res.UserData)
}

func TestSentinelClient_Errors(t *testing.T) {
	status := http.StatusServiceUnavailable
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", status)
	}))
	defer srv.Close()
	c := NewSentinelClient(srv.URL)

	_, err := c.Query(context.Background(), LookupRequest{GcaID: "gca-1"})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.False(t, runner.IsPermanent(err))

	status = http.StatusNotFound
	_, err = c.Query(context.Background(), LookupRequest{GcaID: "gca-1"})
	require.Error(t, err)
	assert.True(t, runner.IsPermanent(err))

	_, err = c.Query(context.Background(), LookupRequest{})
	assert.EqualError(t, err, "gca id required")
}

func TestFailedCarriesGatewayCode(t *testing.T) {
	err := Failed("sentinel lookup", errors.New("timeout"))
	assert.Equal(t, ErrCodeGatewayFailed, flow.ErrorCode(err))
	assert.Contains(t, err.Error(), "sentinel lookup failed")
}

func TestStaticSentinel(t *testing.T) {
	s := &StaticSentinel{
		Products: []flow.SentinelProduct{product("SN1", "2026-09-30T00:00:00Z", "G7")},
		UserData: &flow.SentinelUserData{Gender: "male"},
	}
	res, err := s.Query(context.Background(), LookupRequest{GcaID: "g", IssueDate: "2026-10-01"})
	require.NoError(t, err)
	assert.Len(t, res.Products, 1)
	assert.Equal(t, "male", res.UserData.Gender)
	assert.Len(t, s.Requests(), 1)

	s.Err = errors.New("boom")
	_, err = s.Query(context.Background(), LookupRequest{GcaID: "g"})
	assert.EqualError(t, err, "boom")
}
