package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trychlos/openbook-sub016/internal/adapter/http/dto"
	"github.com/trychlos/openbook-sub016/internal/usecase"
)

// BalanceService defines the behavior needed by BalanceHandler.
type BalanceService interface {
	Recompute(ctx context.Context) (int64, error)
	CheckLedgerConsistency(ctx context.Context, mnemo string) ([]usecase.BalanceDrift, error)
}

// BalanceHandler handles aggregate maintenance HTTP requests.
type BalanceHandler struct {
	balanceUC BalanceService
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(balanceUC BalanceService) *BalanceHandler {
	return &BalanceHandler{balanceUC: balanceUC}
}

// Recompute rebuilds every account and ledger aggregate from the entry
// table in one transaction.
func (h *BalanceHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	scanned, err := h.balanceUC.Recompute(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to recompute balances", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.RecomputeResponse{EntriesScanned: scanned})
}

// Consistency compares a ledger's stored per-currency aggregates with sums
// recomputed from the entries and reports any drift.
func (h *BalanceHandler) Consistency(w http.ResponseWriter, r *http.Request) {
	mnemo := chi.URLParam(r, "mnemo")

	drifts, err := h.balanceUC.CheckLedgerConsistency(r.Context(), mnemo)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to check ledger consistency", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ConsistencyFromDomain(mnemo, drifts))
}
