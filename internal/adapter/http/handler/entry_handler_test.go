package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/trychlos/openbook-sub016/internal/adapter/http/dto"
	"github.com/trychlos/openbook-sub016/internal/domain"
	"github.com/trychlos/openbook-sub016/internal/usecase"
)

type entryServiceStub struct {
	validateFn func(ctx context.Context, draft *usecase.EntryDraft) (usecase.ValidationOutcome, *domain.Entry, error)
	saveFn     func(ctx context.Context, draft *usecase.EntryDraft) (*domain.Entry, error)
	getFn      func(ctx context.Context, id int64) (*domain.Entry, error)
	listFn     func(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.Entry, error)
}

func (s *entryServiceStub) Validate(ctx context.Context, draft *usecase.EntryDraft) (usecase.ValidationOutcome, *domain.Entry, error) {
	return s.validateFn(ctx, draft)
}

func (s *entryServiceStub) Save(ctx context.Context, draft *usecase.EntryDraft) (*domain.Entry, error) {
	return s.saveFn(ctx, draft)
}

func (s *entryServiceStub) GetEntry(ctx context.Context, id int64) (*domain.Entry, error) {
	return s.getFn(ctx, id)
}

func (s *entryServiceStub) ListEntries(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.Entry, error) {
	return s.listFn(ctx, input)
}

type cascadeServiceStub struct {
	deleteFn func(ctx context.Context, id int64) error
}

func (s *cascadeServiceStub) CascadeDelete(ctx context.Context, id int64) error {
	return s.deleteFn(ctx, id)
}

type summaryServiceStub struct {
	summarizeFn func(ctx context.Context, entries []*domain.Entry) (map[string]usecase.CurrencySummary, error)
}

func (s *summaryServiceStub) SummarizeVisible(ctx context.Context, entries []*domain.Entry) (map[string]usecase.CurrencySummary, error) {
	return s.summarizeFn(ctx, entries)
}

// newEntryRouter mounts the handler under its real routes so URL
// parameters resolve.
func newEntryRouter(h *EntryHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/entries/validate", h.Validate)
	r.Post("/entries", h.Save)
	r.Get("/entries", h.List)
	r.Get("/entries/summary", h.Summarize)
	r.Get("/entries/{id}", h.Get)
	r.Delete("/entries/{id}", h.Delete)
	return r
}

func sampleEntry() *domain.Entry {
	return &domain.Entry{
		ID:         42,
		EffectDate: domain.NewDate(2024, time.June, 10),
		Label:      "Office supplies",
		Ledger:     "BQ",
		Account:    "5121",
		Debit:      decimal.NewFromInt(100),
		Currency:   "EUR",
		Status:     domain.StatusRough,
	}
}

func TestEntryHandler_Save_Insert(t *testing.T) {
	var captured *usecase.EntryDraft
	h := NewEntryHandler(&entryServiceStub{
		saveFn: func(ctx context.Context, draft *usecase.EntryDraft) (*domain.Entry, error) {
			captured = draft
			return sampleEntry(), nil
		},
	}, nil, nil)

	effect := "2024-06-10"
	body, _ := json.Marshal(dto.EntryDraftRequest{
		EffectDate: &effect,
		Label:      "Office supplies",
		Ledger:     "BQ",
		Account:    "5121",
		Debit:      decimal.NewFromInt(100),
	})

	req := httptest.NewRequest(http.MethodPost, "/entries", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	newEntryRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if captured == nil || captured.Label != "Office supplies" {
		t.Fatalf("expected draft to reach the service, got %+v", captured)
	}
	if !captured.EffectDateSet || captured.EffectDate != "2024-06-10" {
		t.Fatalf("expected explicit effect date to be flagged, got %+v", captured)
	}
	if captured.CurrencySet {
		t.Fatalf("expected absent currency to stay unset")
	}

	var resp dto.EntryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != 42 || resp.Status != "rough" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestEntryHandler_Save_UpdateAnswers200(t *testing.T) {
	h := NewEntryHandler(&entryServiceStub{
		saveFn: func(ctx context.Context, draft *usecase.EntryDraft) (*domain.Entry, error) {
			return sampleEntry(), nil
		},
	}, nil, nil)

	body, _ := json.Marshal(dto.EntryDraftRequest{
		ID:      42,
		Label:   "Office supplies",
		Ledger:  "BQ",
		Account: "5121",
		Debit:   decimal.NewFromInt(100),
	})

	req := httptest.NewRequest(http.MethodPost, "/entries", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	newEntryRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestEntryHandler_Save_InvalidJSON(t *testing.T) {
	h := NewEntryHandler(&entryServiceStub{
		saveFn: func(ctx context.Context, draft *usecase.EntryDraft) (*domain.Entry, error) {
			t.Fatal("Save should not be called for invalid payload")
			return nil, nil
		},
	}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/entries", bytes.NewBufferString("{invalid json"))
	rec := httptest.NewRecorder()
	newEntryRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestEntryHandler_Save_RejectedDraft(t *testing.T) {
	h := NewEntryHandler(&entryServiceStub{
		saveFn: func(ctx context.Context, draft *usecase.EntryDraft) (*domain.Entry, error) {
			return nil, &usecase.ValidationError{Outcome: usecase.ValidationOutcome{
				Severity: usecase.SeverityError,
				Field:    usecase.FieldLabel,
				Message:  "label cannot be empty",
				Err:      domain.ErrLabelRequired,
			}}
		},
	}, nil, nil)

	body, _ := json.Marshal(dto.EntryDraftRequest{
		Ledger:  "BQ",
		Account: "5121",
		Debit:   decimal.NewFromInt(100),
	})

	req := httptest.NewRequest(http.MethodPost, "/entries", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	newEntryRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.ValidationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Severity != "error" || resp.Field != "label" {
		t.Fatalf("unexpected verdict: %+v", resp)
	}
}

func TestEntryHandler_Save_NotEditableConflicts(t *testing.T) {
	h := NewEntryHandler(&entryServiceStub{
		saveFn: func(ctx context.Context, draft *usecase.EntryDraft) (*domain.Entry, error) {
			return nil, fmt.Errorf("%w: entry 42 is validated", domain.ErrNotEditable)
		},
	}, nil, nil)

	body, _ := json.Marshal(dto.EntryDraftRequest{
		ID:      42,
		Label:   "Office supplies",
		Ledger:  "BQ",
		Account: "5121",
		Debit:   decimal.NewFromInt(100),
	})

	req := httptest.NewRequest(http.MethodPost, "/entries", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	newEntryRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestEntryHandler_Validate_EchoesDefaultedDraft(t *testing.T) {
	h := NewEntryHandler(&entryServiceStub{
		validateFn: func(ctx context.Context, draft *usecase.EntryDraft) (usecase.ValidationOutcome, *domain.Entry, error) {
			// defaulting mutates the draft in place
			draft.Currency = "EUR"
			draft.OperationDate = draft.EffectDate
			return usecase.ValidationOutcome{Severity: usecase.SeverityOk}, nil, nil
		},
	}, nil, nil)

	effect := "2024-06-10"
	body, _ := json.Marshal(dto.EntryDraftRequest{
		EffectDate: &effect,
		Label:      "Office supplies",
		Ledger:     "BQ",
		Account:    "5121",
		Debit:      decimal.NewFromInt(100),
	})

	req := httptest.NewRequest(http.MethodPost, "/entries/validate", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	newEntryRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.ValidationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Severity != "ok" {
		t.Fatalf("expected ok verdict, got %+v", resp)
	}
	if resp.Draft == nil || resp.Draft.Currency == nil || *resp.Draft.Currency != "EUR" {
		t.Fatalf("expected inferred currency in echoed draft, got %+v", resp.Draft)
	}
	if resp.Draft.OperationDate == nil || *resp.Draft.OperationDate != "2024-06-10" {
		t.Fatalf("expected defaulted operation date in echoed draft, got %+v", resp.Draft)
	}
}

func TestEntryHandler_Get_NotFound(t *testing.T) {
	h := NewEntryHandler(&entryServiceStub{
		getFn: func(ctx context.Context, id int64) (*domain.Entry, error) {
			return nil, domain.ErrEntryNotFound
		},
	}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/entries/42", nil)
	rec := httptest.NewRecorder()
	newEntryRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestEntryHandler_Get_InvalidID(t *testing.T) {
	h := NewEntryHandler(&entryServiceStub{
		getFn: func(ctx context.Context, id int64) (*domain.Entry, error) {
			t.Fatal("GetEntry should not be called for a bad id")
			return nil, nil
		},
	}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/entries/abc", nil)
	rec := httptest.NewRecorder()
	newEntryRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestEntryHandler_List_RequiresLedger(t *testing.T) {
	h := NewEntryHandler(&entryServiceStub{
		listFn: func(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.Entry, error) {
			t.Fatal("ListEntries should not be called without a ledger")
			return nil, nil
		},
	}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/entries", nil)
	rec := httptest.NewRecorder()
	newEntryRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestEntryHandler_List_PassesPagination(t *testing.T) {
	var captured usecase.ListEntriesInput
	h := NewEntryHandler(&entryServiceStub{
		listFn: func(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.Entry, error) {
			captured = input
			return []*domain.Entry{sampleEntry()}, nil
		},
	}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/entries?ledger=BQ&limit=10&offset=20", nil)
	rec := httptest.NewRecorder()
	newEntryRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if captured.Ledger != "BQ" || captured.Limit != 10 || captured.Offset != 20 {
		t.Fatalf("unexpected input: %+v", captured)
	}

	var resp []*dto.EntryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].ID != 42 {
		t.Fatalf("unexpected list: %+v", resp)
	}
}

func TestEntryHandler_Delete_Success(t *testing.T) {
	var deleted int64
	h := NewEntryHandler(&entryServiceStub{}, &cascadeServiceStub{
		deleteFn: func(ctx context.Context, id int64) error {
			deleted = id
			return nil
		},
	}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/entries/42", nil)
	rec := httptest.NewRecorder()
	newEntryRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if deleted != 42 {
		t.Fatalf("expected cascade delete of entry 42, got %d", deleted)
	}
}

func TestEntryHandler_Delete_NotEditableConflicts(t *testing.T) {
	h := NewEntryHandler(&entryServiceStub{}, &cascadeServiceStub{
		deleteFn: func(ctx context.Context, id int64) error {
			return fmt.Errorf("%w: entry %d is validated", domain.ErrNotEditable, id)
		},
	}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/entries/42", nil)
	rec := httptest.NewRecorder()
	newEntryRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestEntryHandler_Summarize(t *testing.T) {
	entries := []*domain.Entry{sampleEntry()}
	h := NewEntryHandler(&entryServiceStub{
		listFn: func(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.Entry, error) {
			return entries, nil
		},
	}, nil, &summaryServiceStub{
		summarizeFn: func(ctx context.Context, got []*domain.Entry) (map[string]usecase.CurrencySummary, error) {
			if len(got) != len(entries) {
				t.Fatalf("expected listed entries to be summarized, got %d", len(got))
			}
			return map[string]usecase.CurrencySummary{
				"USD": {Currency: "USD", DebitTotal: decimal.NewFromInt(3), CreditTotal: decimal.NewFromInt(4)},
				"EUR": {Currency: "EUR", DebitTotal: decimal.NewFromInt(100), CreditTotal: decimal.NewFromInt(100), Balanced: true},
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/entries/summary?ledger=BQ", nil)
	rec := httptest.NewRecorder()
	newEntryRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.SummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Ledger != "BQ" || len(resp.Currencies) != 2 {
		t.Fatalf("unexpected summary: %+v", resp)
	}
	// currency order is sorted for stable output
	if resp.Currencies[0].Currency != "EUR" || !resp.Currencies[0].Balanced {
		t.Fatalf("unexpected first line: %+v", resp.Currencies[0])
	}
	if resp.Currencies[1].Currency != "USD" || resp.Currencies[1].Balanced {
		t.Fatalf("unexpected second line: %+v", resp.Currencies[1])
	}
}
