package gateway

import (
	"slices"
	"strings"
	"time"

	"github.com/goliatone/go-intake/flow"
)

const (
	lookbackWindow  = 15 * 24 * time.Hour
	lookaheadWindow = 24 * time.Hour
	isoMillis       = "2006-01-02T15:04:05.000Z"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FilterProducts keeps the candidates relevant to an issue reported on
// issueDate in country. Any malformed candidate, or a malformed date,
// discards the whole list. Empty issueDate and country disable their
// filters. Later duplicates of a serial replace earlier ones.
func FilterProducts(list []flow.SentinelProduct, issueDate, country string, catalog *flow.Catalog) map[string]flow.SentinelProduct {
	out := make(map[string]flow.SentinelProduct)
	for _, p := range list {
		if strings.TrimSpace(p.SerialNumber) == "" || strings.TrimSpace(p.AuditTimeStamp) == "" {
			return map[string]flow.SentinelProduct{}
		}
	}

	var from, to time.Time
	windowed := strings.TrimSpace(issueDate) != ""
	if windowed {
		day, err := time.Parse("2006-01-02", strings.TrimSpace(issueDate))
		if err != nil {
			return map[string]flow.SentinelProduct{}
		}
		from, to = day.Add(-lookbackWindow), day.Add(lookaheadWindow)
	}

	var allowed []string
	countryFiltered := strings.TrimSpace(country) != ""
	if countryFiltered {
		if catalog == nil {
			catalog = flow.DefaultCatalog()
		}
		allowed, _ = catalog.Purchasable(country)
	}

	for _, p := range list {
		ts, ok := parseTimestamp(p.AuditTimeStamp)
		if !ok {
			return map[string]flow.SentinelProduct{}
		}
		if windowed && (!ts.After(from) || ts.After(to)) {
			continue
		}
		if countryFiltered && !slices.Contains(allowed, p.ProductType) {
			continue
		}
		p.AuditTimeStamp = ts.Format(isoMillis)
		out[p.SerialNumber] = p
	}
	return out
}

func parseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
