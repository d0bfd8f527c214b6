package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/loyalty-discount/internal/domain/loyalty"
)

type tierResponse struct {
	Threshold  decimal.Decimal `json:"threshold"`
	Percentage decimal.Decimal `json:"percentage"`
}

type statusResponse struct {
	Enabled bool           `json:"enabled"`
	Title   string         `json:"title"`
	Period  string         `json:"period,omitempty"`
	Tiers   []tierResponse `json:"tiers"`
	Error   string         `json:"error,omitempty"`
}

// LoyaltyStatus reports the module configuration, including validation
// problems.
func (h *Handler) LoyaltyStatus(w http.ResponseWriter, r *http.Request) {
	st := h.loyalty.Status()
	resp := statusResponse{
		Enabled: st.Enabled,
		Title:   st.Title,
		Period:  string(st.Period),
		Tiers:   make([]tierResponse, 0, len(st.Tiers)),
		Error:   st.Error,
	}
	for _, t := range st.Tiers {
		resp.Tiers = append(resp.Tiers, tierResponse{Threshold: t.Threshold, Percentage: t.Percentage})
	}
	writeJSON(r.Context(), w, http.StatusOK, resp)
}

type spendResponse struct {
	CustomerID      string          `json:"customer_id"`
	Period          string          `json:"period"`
	CumulativeSpend decimal.Decimal `json:"cumulative_spend"`
	Tier            *tierResponse   `json:"tier"`
}

// CustomerSpend previews a customer's cumulative spend and tier.
func (h *Handler) CustomerSpend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(ctx, w, http.StatusBadRequest, "customer id is required")
		return
	}

	p, err := h.loyalty.Preview(ctx, id)
	if err != nil {
		var cfgErr *loyalty.ConfigError
		switch {
		case errors.As(err, &cfgErr):
			writeError(ctx, w, http.StatusConflict, "loyalty configuration invalid: "+cfgErr.Error())
		case errors.Is(err, loyalty.ErrDataSource):
			zctx.From(ctx).Warn("Order history unavailable", zap.String("customer_id", id), zap.Error(err))
			writeError(ctx, w, http.StatusServiceUnavailable, "order history unavailable")
		default:
			zctx.From(ctx).Error("Preview spend", zap.String("customer_id", id), zap.Error(err))
			writeError(ctx, w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	resp := spendResponse{
		CustomerID:      p.CustomerID,
		Period:          string(p.Period),
		CumulativeSpend: p.CumulativeSpend,
	}
	if p.Tier != nil {
		resp.Tier = &tierResponse{Threshold: p.Tier.Threshold, Percentage: p.Tier.Percentage}
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}
