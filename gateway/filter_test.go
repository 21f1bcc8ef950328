package gateway

import (
	"testing"

	"github.com/goliatone/go-intake/flow"
	"github.com/stretchr/testify/assert"
)

func product(serial, ts, productType string) flow.SentinelProduct {
	return flow.SentinelProduct{SerialNumber: serial, AuditTimeStamp: ts, ProductType: productType}
}

func TestFilterProducts_DateWindow(t *testing.T) {
	list := []flow.SentinelProduct{
		product("tooOld", "2026-09-16T00:00:00Z", "G7"),
		product("edgeOld", "2026-09-16T00:00:01Z", "G7"),
		product("sameDay", "2026-10-01T08:30:00Z", "G7"),
		product("edgeNew", "2026-10-02T00:00:00Z", "G7"),
		product("tooNew", "2026-10-02T00:00:01Z", "G7"),
	}

	got := FilterProducts(list, "2026-10-01", "", nil)

	assert.ElementsMatch(t, []string{"edgeOld", "sameDay", "edgeNew"}, keys(got))
	assert.Equal(t, "2026-10-01T08:30:00.000Z", got["sameDay"].AuditTimeStamp)
}

func TestFilterProducts_NoDateKeepsEverything(t *testing.T) {
	list := []flow.SentinelProduct{
		product("a", "2020-01-01T00:00:00Z", "G6"),
		product("b", "2030-01-01T00:00:00+02:00", "G7"),
	}

	got := FilterProducts(list, "", "", nil)

	assert.Len(t, got, 2)
	assert.Equal(t, "2029-12-31T22:00:00.000Z", got["b"].AuditTimeStamp)
}

func TestFilterProducts_Country(t *testing.T) {
	list := []flow.SentinelProduct{
		product("g6", "2026-09-30T00:00:00Z", "G6"),
		product("g7", "2026-09-30T00:00:00Z", "G7"),
		product("g715", "2026-09-30T00:00:00Z", "G7_15"),
	}

	assert.ElementsMatch(t, []string{"g6", "g7"}, keys(FilterProducts(list, "2026-10-01", "CA", nil)))
	assert.ElementsMatch(t, []string{"g6", "g7", "g715"}, keys(FilterProducts(list, "2026-10-01", "us", nil)))
	assert.Empty(t, FilterProducts(list, "2026-10-01", "FR", nil))
}

func TestFilterProducts_MalformedDiscardsAll(t *testing.T) {
	tests := []struct {
		name string
		list []flow.SentinelProduct
		date string
	}{
		{"missing serial", []flow.SentinelProduct{product("a", "2026-09-30T00:00:00Z", "G7"), product("", "2026-09-30T00:00:00Z", "G7")}, ""},
		{"missing timestamp", []flow.SentinelProduct{product("a", "2026-09-30T00:00:00Z", "G7"), product("b", "", "G7")}, ""},
		{"bad timestamp", []flow.SentinelProduct{product("a", "yesterday", "G7")}, ""},
		{"bad date", []flow.SentinelProduct{product("a", "2026-09-30T00:00:00Z", "G7")}, "01/10/2026"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterProducts(tt.list, tt.date, "", nil)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestFilterProducts_LastDuplicateWins(t *testing.T) {
	list := []flow.SentinelProduct{
		product("sn", "2026-09-29T00:00:00Z", "G6"),
		product("sn", "2026-09-30T00:00:00Z", "G7"),
	}

	got := FilterProducts(list, "", "", nil)

	assert.Len(t, got, 1)
	assert.Equal(t, "G7", got["sn"].ProductType)
}

func keys(m map[string]flow.SentinelProduct) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
