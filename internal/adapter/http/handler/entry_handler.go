package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/trychlos/openbook-sub016/internal/adapter/http/dto"
	"github.com/trychlos/openbook-sub016/internal/domain"
	"github.com/trychlos/openbook-sub016/internal/usecase"
)

// EntryService defines the behavior needed by EntryHandler for the write
// path of the grid editor.
type EntryService interface {
	Validate(ctx context.Context, draft *usecase.EntryDraft) (usecase.ValidationOutcome, *domain.Entry, error)
	Save(ctx context.Context, draft *usecase.EntryDraft) (*domain.Entry, error)
	GetEntry(ctx context.Context, id int64) (*domain.Entry, error)
	ListEntries(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.Entry, error)
}

// CascadeService defines the delete behavior needed by EntryHandler.
type CascadeService interface {
	CascadeDelete(ctx context.Context, id int64) error
}

// SummaryService defines the visible-set summary behavior needed by
// EntryHandler.
type SummaryService interface {
	SummarizeVisible(ctx context.Context, entries []*domain.Entry) (map[string]usecase.CurrencySummary, error)
}

// EntryHandler handles entry-related HTTP requests.
type EntryHandler struct {
	entryUC   EntryService
	cascadeUC CascadeService
	summaryUC SummaryService
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(entryUC EntryService, cascadeUC CascadeService, summaryUC SummaryService) *EntryHandler {
	return &EntryHandler{
		entryUC:   entryUC,
		cascadeUC: cascadeUC,
		summaryUC: summaryUC,
	}
}

// Validate runs the field validator against a draft without persisting
// anything, returning the verdict and the draft as mutated by defaulting.
func (h *EntryHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req dto.EntryDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	draft := req.ToDraft()
	outcome, _, err := h.entryUC.Validate(r.Context(), draft)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to validate entry", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ValidationFromOutcome(outcome, draft))
}

// Save validates and persists a draft entry. A draft without an id inserts
// and answers 201; a draft carrying an id updates the persisted entry and
// answers 200. A rejected draft answers 422 with the validation verdict.
func (h *EntryHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req dto.EntryDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	draft := req.ToDraft()
	entry, err := h.entryUC.Save(r.Context(), draft)
	if err != nil {
		var verr *usecase.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, dto.ValidationFromOutcome(verr.Outcome, draft))
			return
		}
		writeError(w, mapDomainError(err), "failed to save entry", err.Error())
		return
	}

	status := http.StatusOK
	if req.ID == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, dto.EntryFromDomain(entry))
}

// Get retrieves an entry by ID.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEntryID(w, r)
	if !ok {
		return
	}

	entry, err := h.entryUC.GetEntry(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get entry", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// List lists the entries of a ledger, newest first.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	ledger := r.URL.Query().Get("ledger")
	if ledger == "" {
		writeError(w, http.StatusBadRequest, "missing ledger", "the ledger query parameter is required")
		return
	}

	entries, err := h.entryUC.ListEntries(r.Context(), usecase.ListEntriesInput{
		Ledger: ledger,
		Limit:  parseIntQuery(r, "limit", 0),
		Offset: parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list entries", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// Delete deletes an entry, dissolving any settlement or conciliation group
// it belongs to and withdrawing its balance contributions.
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEntryID(w, r)
	if !ok {
		return
	}

	if err := h.cascadeUC.CascadeDelete(r.Context(), id); err != nil {
		writeError(w, mapDomainError(err), "failed to delete entry", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Summarize reports, per currency, whether the listed entries of a ledger
// balance at that currency's precision.
func (h *EntryHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	ledger := r.URL.Query().Get("ledger")
	if ledger == "" {
		writeError(w, http.StatusBadRequest, "missing ledger", "the ledger query parameter is required")
		return
	}

	entries, err := h.entryUC.ListEntries(r.Context(), usecase.ListEntriesInput{
		Ledger: ledger,
		Limit:  parseIntQuery(r, "limit", usecase.MaxPageSize),
		Offset: parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list entries", err.Error())
		return
	}

	summaries, err := h.summaryUC.SummarizeVisible(r.Context(), entries)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to summarize entries", err.Error())
		return
	}

	codes := make([]string, 0, len(summaries))
	for code := range summaries {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	writeJSON(w, http.StatusOK, dto.SummaryFromDomain(ledger, codes, summaries))
}

func parseEntryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry id", err.Error())
		return 0, false
	}
	return id, true
}
