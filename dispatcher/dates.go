package dispatcher

import (
	"strings"
	"time"

	"github.com/goliatone/go-intake/flow"
)

// ConvertDate reformats value from the simple date pattern from (e.g.
// dd/MM/yyyy) to the pattern to. Values that do not parse are returned
// unchanged.
func ConvertDate(value, from, to string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return value
	}
	t, err := time.Parse(goLayout(from), trimmed)
	if err != nil {
		return value
	}
	return t.Format(goLayout(to))
}

// goLayout translates the y/M/d tokens of a simple date pattern into the
// reference-time layout. Other characters are kept as separators.
func goLayout(pattern string) string {
	var sb strings.Builder
	for i := 0; i < len(pattern); {
		c := pattern[i]
		j := i
		for j < len(pattern) && pattern[j] == c {
			j++
		}
		run := j - i
		switch c {
		case 'y':
			if run == 2 {
				sb.WriteString("06")
			} else {
				sb.WriteString("2006")
			}
		case 'M':
			if run == 1 {
				sb.WriteString("1")
			} else {
				sb.WriteString("01")
			}
		case 'd':
			if run == 1 {
				sb.WriteString("2")
			} else {
				sb.WriteString("02")
			}
		default:
			sb.WriteString(pattern[i:j])
		}
		i = j
	}
	return sb.String()
}

// ProductFromSentinel builds the product details for a device history
// candidate. The date is the calendar day of its audit timestamp.
func ProductFromSentinel(p flow.SentinelProduct) flow.ProductDetails {
	return flow.ProductDetails{
		Date:                  auditDate(p.AuditTimeStamp),
		SerialNumber:          p.SerialNumber,
		ContinueWithoutSerial: false,
		Generation:            p.ProductType,
	}
}

func auditDate(ts string) string {
	ts = strings.TrimSpace(ts)
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t.UTC().Format("2006-01-02")
	}
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}
