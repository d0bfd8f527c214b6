package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/loyalty-discount/internal/domain/loyalty"
)

func TestHistoryQuery(t *testing.T) {
	tests := []struct {
		name     string
		filter   string
		wantCond string
		wantArgs []any
	}{
		{name: "Unrestricted", filter: "", wantArgs: []any{"c1"}},
		{name: "MinStatus", filter: "3", wantCond: "o.status >= $2", wantArgs: []any{"c1", 3}},
		{name: "StatusSet", filter: "5,2,3", wantCond: "o.status = ANY($2)", wantArgs: []any{"c1", []int{2, 3, 5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := loyalty.ParseStatusFilter(tt.filter)
			require.NoError(t, err)

			query, args := historyQuery("c1", f)
			assert.Equal(t, tt.wantArgs, args)
			assert.True(t, strings.HasSuffix(query, historyOrderBy))
			assert.Contains(t, query, "ot.class = 'ot_total'")
			if tt.wantCond != "" {
				assert.Contains(t, query, tt.wantCond)
			} else {
				assert.NotContains(t, query, "$2")
			}
		})
	}
}
