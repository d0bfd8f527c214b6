//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestLoyaltyStatus(t *testing.T) {
	resp := do(t, http.MethodGet, "/api/loyalty/status", testAdminKey, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeJSON[statusResponse](t, resp)
	if !body.Enabled || body.Error != "" {
		t.Fatalf("expected enabled without error, got %+v", body)
	}
	if body.Title != "Loyalty Discount" {
		t.Errorf("title: got %q", body.Title)
	}
	if body.Period != "year" {
		t.Errorf("period: got %q", body.Period)
	}
	if len(body.Tiers) != 5 {
		t.Errorf("expected 5 tiers, got %d", len(body.Tiers))
	}
}

func TestLoyaltyStatus_OrderKeyForbidden(t *testing.T) {
	resp := do(t, http.MethodGet, "/api/loyalty/status", testAPIKey, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestCustomerSpend(t *testing.T) {
	tests := []struct {
		customer string
		spend    string
		pct      string
	}{
		// Excludes a pending order and one older than a year.
		{customer: "cust-gold", spend: "1600.00", pct: "7.5"},
		{customer: "cust-silver", spend: "1050.00", pct: "5"},
		{customer: "cust-new", spend: "120.00"},
		{customer: "cust-unknown", spend: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.customer, func(t *testing.T) {
			resp := do(t, http.MethodGet, "/api/loyalty/customers/"+tt.customer+"/spend", testAdminKey, nil)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}
			body := decodeJSON[spendResponse](t, resp)
			assertAmount(t, "cumulative_spend", tt.spend, body.CumulativeSpend)

			switch {
			case tt.pct == "" && body.Tier != nil:
				t.Errorf("unexpected tier %+v", body.Tier)
			case tt.pct != "" && body.Tier == nil:
				t.Errorf("expected %s%% tier", tt.pct)
			case tt.pct != "":
				assertAmount(t, "percentage", tt.pct, body.Tier.Percentage)
			}
		})
	}
}
