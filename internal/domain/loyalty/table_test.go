package loyalty

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTable(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantRules int
		wantErr   error
	}{
		{name: "default schedule", input: "1000:5,1500:7.5,2000:10,3000:12.5,5000:15", wantRules: 5},
		{name: "whitespace around entries", input: " 1000 : 5 ,  1500:7.5 ", wantRules: 2},
		{name: "single tier", input: "0:2", wantRules: 1},
		{name: "full discount tier", input: "100:100", wantRules: 1},
		{name: "empty string", input: "", wantErr: ErrEmptyTable},
		{name: "blank string", input: "   ", wantErr: ErrEmptyTable},
		{name: "missing colon", input: "1000:5,15007.5", wantErr: ErrMalformedEntry},
		{name: "trailing comma", input: "1000:5,", wantErr: ErrMalformedEntry},
		{name: "non-numeric threshold", input: "abc:5", wantErr: ErrNonNumeric},
		{name: "non-numeric percentage", input: "1000:five", wantErr: ErrNonNumeric},
		{name: "empty threshold", input: ":5", wantErr: ErrNonNumeric},
		{name: "extra colon", input: "1000:5:1", wantErr: ErrNonNumeric},
		{name: "descending thresholds", input: "2000:10,1000:5", wantErr: ErrNonAscending},
		{name: "duplicate thresholds", input: "1000:5,1000:7", wantErr: ErrNonAscending},
		{name: "zero percentage", input: "1000:0", wantErr: ErrPercentageRange},
		{name: "percentage above 100", input: "1000:100.5", wantErr: ErrPercentageRange},
		{name: "negative threshold", input: "-5:5", wantErr: ErrNegativeThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ParseTable(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				var cfgErr *ConfigError
				require.ErrorAs(t, err, &cfgErr)
				assert.Empty(t, table.Rules(), "no partial table on error")
				return
			}
			require.NoError(t, err)
			assert.Len(t, table.Rules(), tt.wantRules)
		})
	}
}

func TestConfigError_Message(t *testing.T) {
	_, err := ParseTable("1000:5,900:7")
	require.Error(t, err)
	assert.Equal(t, `discount thresholds not ascending: entry 2 "900:7"`, err.Error())
}

func TestTable_TierFor(t *testing.T) {
	table, err := ParseTable("1000:5,1500:7.5,2000:10")
	require.NoError(t, err)

	tests := []struct {
		amount  string
		wantPct string
		wantOK  bool
	}{
		{amount: "0"},
		{amount: "999.99"},
		{amount: "1000", wantPct: "5", wantOK: true},
		{amount: "1499.99", wantPct: "5", wantOK: true},
		{amount: "1500", wantPct: "7.5", wantOK: true},
		{amount: "1600", wantPct: "7.5", wantOK: true},
		{amount: "2000", wantPct: "10", wantOK: true},
		{amount: "1000000", wantPct: "10", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			rule, ok := table.TierFor(d(tt.amount))
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assertDecimal(t, tt.wantPct, rule.Percentage)
			}
		})
	}
}

// For random ascending tables the chosen tier is always the greatest
// threshold not above the amount.
func TestTable_TierFor_GreatestQualifyingThreshold(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for range 200 {
		n := 1 + rng.IntN(6)
		thresholds := make([]decimal.Decimal, n)
		entries := make([]string, n)
		next := int64(rng.IntN(500))
		for i := range n {
			next += 1 + int64(rng.IntN(1000))
			thresholds[i] = decimal.NewFromInt(next)
			entries[i] = thresholds[i].String() + ":" + decimal.NewFromInt(int64(1+i)).String()
		}
		table, err := ParseTable(strings.Join(entries, ","))
		require.NoError(t, err)

		amount := decimal.NewFromInt(int64(rng.IntN(int(next) + 500)))
		rule, ok := table.TierFor(amount)

		wantIdx := -1
		for i, th := range thresholds {
			if amount.GreaterThanOrEqual(th) {
				wantIdx = i
			}
		}
		if wantIdx < 0 {
			assert.False(t, ok, "amount %s below lowest threshold %s", amount, thresholds[0])
			continue
		}
		require.True(t, ok)
		assert.True(t, thresholds[wantIdx].Equal(rule.Threshold),
			"amount %s: expected threshold %s, got %s", amount, thresholds[wantIdx], rule.Threshold)
	}
}
