// Package handler exposes the order-total and loyalty administration API
// over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/loyalty-discount/internal/domain/auth"
	"github.com/xenking/loyalty-discount/internal/domain/loyalty"
	"github.com/xenking/loyalty-discount/internal/domain/order"
)

// Totals builds the order-total breakdown for one order snapshot.
type Totals interface {
	Run(ctx context.Context, o *order.Order) ([]order.TotalLine, error)
}

// Loyalty is the administrative view of the loyalty discount.
type Loyalty interface {
	Status() loyalty.Status
	Preview(ctx context.Context, customerID string) (*loyalty.Preview, error)
}

// Handler serves the /api routes.
type Handler struct {
	totals  Totals
	loyalty Loyalty
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(totals Totals, l Loyalty) *Handler {
	return &Handler{totals: totals, loyalty: l}
}

// Register mounts every route on mux behind a.
func (h *Handler) Register(mux *http.ServeMux, a *Authenticator) {
	mux.Handle("POST /api/order-total", a.Require(auth.ScopeOrderTotal, http.HandlerFunc(h.OrderTotal)))
	mux.Handle("GET /api/loyalty/status", a.Require(auth.ScopeLoyaltyAdmin, http.HandlerFunc(h.LoyaltyStatus)))
	mux.Handle("GET /api/loyalty/customers/{id}/spend", a.Require(auth.ScopeLoyaltyAdmin, http.HandlerFunc(h.CustomerSpend)))
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(ctx).Debug("Write response", zap.Error(err))
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, code int, msg string) {
	writeJSON(ctx, w, code, errorResponse{Code: code, Message: msg})
}
