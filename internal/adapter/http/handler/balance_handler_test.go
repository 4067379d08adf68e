package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/trychlos/openbook-sub016/internal/adapter/http/dto"
	"github.com/trychlos/openbook-sub016/internal/domain"
	"github.com/trychlos/openbook-sub016/internal/usecase"
)

type balanceServiceStub struct {
	recomputeFn   func(ctx context.Context) (int64, error)
	consistencyFn func(ctx context.Context, mnemo string) ([]usecase.BalanceDrift, error)
}

func (s *balanceServiceStub) Recompute(ctx context.Context) (int64, error) {
	return s.recomputeFn(ctx)
}

func (s *balanceServiceStub) CheckLedgerConsistency(ctx context.Context, mnemo string) ([]usecase.BalanceDrift, error) {
	return s.consistencyFn(ctx, mnemo)
}

func newBalanceRouter(h *BalanceHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/balances/recompute", h.Recompute)
	r.Get("/ledgers/{mnemo}/consistency", h.Consistency)
	return r
}

func TestBalanceHandler_Recompute(t *testing.T) {
	h := NewBalanceHandler(&balanceServiceStub{
		recomputeFn: func(ctx context.Context) (int64, error) { return 128, nil },
	})

	req := httptest.NewRequest(http.MethodPost, "/balances/recompute", nil)
	rec := httptest.NewRecorder()
	newBalanceRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.RecomputeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.EntriesScanned != 128 {
		t.Fatalf("expected 128 entries scanned, got %d", resp.EntriesScanned)
	}
}

func TestBalanceHandler_Recompute_Failure(t *testing.T) {
	h := NewBalanceHandler(&balanceServiceStub{
		recomputeFn: func(ctx context.Context) (int64, error) { return 0, errors.New("db down") },
	})

	req := httptest.NewRequest(http.MethodPost, "/balances/recompute", nil)
	rec := httptest.NewRecorder()
	newBalanceRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestBalanceHandler_Consistency(t *testing.T) {
	h := NewBalanceHandler(&balanceServiceStub{
		consistencyFn: func(ctx context.Context, mnemo string) ([]usecase.BalanceDrift, error) {
			if mnemo != "BQ" {
				t.Fatalf("expected mnemo BQ, got %s", mnemo)
			}
			return []usecase.BalanceDrift{{
				Currency: "EUR",
				Bucket:   domain.BucketRough,
				Side:     "debit",
				Stored:   decimal.NewFromInt(120),
				Computed: decimal.NewFromInt(150),
			}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/ledgers/BQ/consistency", nil)
	rec := httptest.NewRecorder()
	newBalanceRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.ConsistencyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Consistent || len(resp.Drifts) != 1 {
		t.Fatalf("expected one drift, got %+v", resp)
	}
	if d := resp.Drifts[0]; d.Currency != "EUR" || d.Bucket != "rough" || d.Side != "debit" {
		t.Fatalf("unexpected drift: %+v", d)
	}
}

func TestBalanceHandler_Consistency_UnknownLedger(t *testing.T) {
	h := NewBalanceHandler(&balanceServiceStub{
		consistencyFn: func(ctx context.Context, mnemo string) ([]usecase.BalanceDrift, error) {
			return nil, domain.ErrLedgerNotFound
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/ledgers/XX/consistency", nil)
	rec := httptest.NewRecorder()
	newBalanceRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
