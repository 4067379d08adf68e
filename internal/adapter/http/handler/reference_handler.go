package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trychlos/openbook-sub016/internal/adapter/http/dto"
	"github.com/trychlos/openbook-sub016/internal/usecase"
)

// ReferenceHandler serves the read-only reference directories entries post
// against: accounts, ledgers and currencies.
type ReferenceHandler struct {
	accountRepo  usecase.AccountRepository
	ledgerRepo   usecase.LedgerRepository
	currencyRepo usecase.CurrencyRepository
}

// NewReferenceHandler creates a new ReferenceHandler.
func NewReferenceHandler(
	accountRepo usecase.AccountRepository,
	ledgerRepo usecase.LedgerRepository,
	currencyRepo usecase.CurrencyRepository,
) *ReferenceHandler {
	return &ReferenceHandler{
		accountRepo:  accountRepo,
		ledgerRepo:   ledgerRepo,
		currencyRepo: currencyRepo,
	}
}

// ListAccounts lists chart-of-accounts nodes with their aggregates.
func (h *ReferenceHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", usecase.DefaultPageSize)
	offset := parseIntQuery(r, "offset", 0)

	accounts, err := h.accountRepo.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list accounts", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountsFromDomain(accounts))
}

// GetAccount retrieves one account by number.
func (h *ReferenceHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountRepo.GetByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get account", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// ListLedgers lists ledgers with their per-currency balance rows.
func (h *ReferenceHandler) ListLedgers(w http.ResponseWriter, r *http.Request) {
	ledgers, err := h.ledgerRepo.List(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list ledgers", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.LedgersFromDomain(ledgers))
}

// GetLedger retrieves one ledger by mnemonic.
func (h *ReferenceHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.ledgerRepo.GetByMnemo(r.Context(), chi.URLParam(r, "mnemo"))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get ledger", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.LedgerFromDomain(ledger))
}

// ListCurrencies lists the known currencies and their precisions.
func (h *ReferenceHandler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := h.currencyRepo.List(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list currencies", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.CurrenciesFromDomain(currencies))
}
