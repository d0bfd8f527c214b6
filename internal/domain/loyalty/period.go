package loyalty

import (
	"strings"
	"time"
)

// Period is the rolling window over which past spend is summed.
type Period string

const (
	PeriodAllTime Period = "alltime"
	PeriodYear    Period = "year"
	PeriodQuarter Period = "quarter"
	PeriodMonth   Period = "month"
)

// ParsePeriod maps a configuration value to a Period. An empty value means
// all-time.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PeriodAllTime:
		return PeriodAllTime, nil
	case PeriodYear, PeriodQuarter, PeriodMonth:
		return p, nil
	default:
		return "", &ConfigError{Kind: ErrUnknownPeriod, Index: -1, Entry: s}
	}
}

// Cutoff returns the earliest purchase instant that still counts, relative
// to now. It reports false for all-time, which has no lower bound.
func (p Period) Cutoff(now time.Time) (time.Time, bool) {
	switch p {
	case PeriodYear:
		return now.AddDate(-1, 0, 0), true
	case PeriodQuarter:
		return now.AddDate(0, -3, 0), true
	case PeriodMonth:
		return now.AddDate(0, -1, 0), true
	default:
		return time.Time{}, false
	}
}

// Label is the phrase used in the customer-facing description.
func (p Period) Label() string {
	switch p {
	case PeriodYear:
		return "in the last year"
	case PeriodQuarter:
		return "in the last quarter"
	case PeriodMonth:
		return "in the last month"
	default:
		return "with us"
	}
}
