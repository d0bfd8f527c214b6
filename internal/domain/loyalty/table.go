package loyalty

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// Rule grants Percentage off once cumulative spend reaches Threshold.
type Rule struct {
	Threshold  decimal.Decimal `json:"threshold"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Table is an immutable tier schedule ordered by strictly increasing
// threshold.
type Table struct {
	rules []Rule
}

// ParseTable parses a schedule such as "1000:5,1500:7.5,2000:10". Any bad
// entry invalidates the whole table.
func ParseTable(s string) (Table, error) {
	if strings.TrimSpace(s) == "" {
		return Table{}, &ConfigError{Kind: ErrEmptyTable, Index: -1}
	}

	entries := strings.Split(s, ",")
	rules := make([]Rule, 0, len(entries))
	for i, raw := range entries {
		entry := strings.TrimSpace(raw)

		left, right, ok := strings.Cut(entry, ":")
		if !ok {
			return Table{}, &ConfigError{Kind: ErrMalformedEntry, Index: i, Entry: entry}
		}

		threshold, err := decimal.NewFromString(strings.TrimSpace(left))
		if err != nil {
			return Table{}, &ConfigError{Kind: ErrNonNumeric, Index: i, Entry: entry}
		}
		pct, err := decimal.NewFromString(strings.TrimSpace(right))
		if err != nil {
			return Table{}, &ConfigError{Kind: ErrNonNumeric, Index: i, Entry: entry}
		}

		if threshold.IsNegative() {
			return Table{}, &ConfigError{Kind: ErrNegativeThreshold, Index: i, Entry: entry}
		}
		if !pct.IsPositive() || pct.GreaterThan(hundred) {
			return Table{}, &ConfigError{Kind: ErrPercentageRange, Index: i, Entry: entry}
		}
		if n := len(rules); n > 0 && threshold.LessThanOrEqual(rules[n-1].Threshold) {
			return Table{}, &ConfigError{Kind: ErrNonAscending, Index: i, Entry: entry}
		}

		rules = append(rules, Rule{Threshold: threshold, Percentage: pct})
	}

	return Table{rules: rules}, nil
}

// Rules returns a copy of the table's rules in ascending threshold order.
func (t Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// TierFor returns the rule with the highest threshold not above amount.
// It reports false when amount is below the lowest threshold.
func (t Table) TierFor(amount decimal.Decimal) (Rule, bool) {
	var (
		best  Rule
		found bool
	)
	// Every rule is checked: the controlling rule is the highest qualifying
	// threshold, not the first match.
	for _, r := range t.rules {
		if amount.GreaterThanOrEqual(r.Threshold) && (!found || r.Threshold.GreaterThan(best.Threshold)) {
			best = r
			found = true
		}
	}
	return best, found
}
