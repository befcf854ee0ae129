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

	"github.com/verifychain/verifychain/internal/domain"
)

type stubRegistry struct {
	window       domain.RegistryWindow
	refreshed    domain.RegistryWindow
	refreshErr   error
	refreshCalls int

	asset    domain.Asset
	assetErr error

	balance    int64
	balanceErr error

	refreshBalanceCalls int
}

func (s *stubRegistry) Refresh(ctx context.Context) (domain.RegistryWindow, error) {
	s.refreshCalls++
	return s.refreshed, s.refreshErr
}

func (s *stubRegistry) Window() domain.RegistryWindow { return s.window }

func (s *stubRegistry) Asset(ctx context.Context, id int64) (domain.Asset, error) {
	return s.asset, s.assetErr
}

func (s *stubRegistry) Balance(ctx context.Context, address string) (int64, error) {
	return s.balance, s.balanceErr
}

func (s *stubRegistry) RefreshBalance(ctx context.Context, address string) (int64, error) {
	s.refreshBalanceCalls++
	return s.balance, s.balanceErr
}

func TestListAssetsServesCachedWindow(t *testing.T) {
	reg := &stubRegistry{window: domain.RegistryWindow{
		Assets:      []domain.Asset{{ID: 5}, {ID: 4}, {ID: 3}},
		NextAssetID: 5,
		RefreshedAt: time.Now(),
	}}
	h := NewAssetHandler(reg, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/assets", nil)
	rec := httptest.NewRecorder()
	h.ListAssets(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if reg.refreshCalls != 0 {
		t.Errorf("refresh calls = %d, want 0 (window already warm)", reg.refreshCalls)
	}

	var window domain.RegistryWindow
	if err := json.Unmarshal(rec.Body.Bytes(), &window); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(window.Assets) != 3 || window.Assets[0].ID != 5 {
		t.Errorf("window = %+v", window)
	}
}

func TestListAssetsRefreshOnDemand(t *testing.T) {
	reg := &stubRegistry{
		window: domain.RegistryWindow{RefreshedAt: time.Now()},
		refreshed: domain.RegistryWindow{
			Assets:      []domain.Asset{{ID: 6}},
			NextAssetID: 6,
			RefreshedAt: time.Now(),
		},
	}
	h := NewAssetHandler(reg, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/assets?refresh=1", nil)
	rec := httptest.NewRecorder()
	h.ListAssets(rec, req)

	if reg.refreshCalls != 1 {
		t.Errorf("refresh calls = %d, want 1", reg.refreshCalls)
	}
	var window domain.RegistryWindow
	if err := json.Unmarshal(rec.Body.Bytes(), &window); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if window.NextAssetID != 6 {
		t.Errorf("NextAssetID = %d, want 6", window.NextAssetID)
	}
}

func TestListAssetsColdWindowTriggersRefresh(t *testing.T) {
	reg := &stubRegistry{refreshed: domain.RegistryWindow{RefreshedAt: time.Now()}}
	h := NewAssetHandler(reg, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/assets", nil)
	rec := httptest.NewRecorder()
	h.ListAssets(rec, req)

	if reg.refreshCalls != 1 {
		t.Errorf("refresh calls = %d, want 1 (zero RefreshedAt)", reg.refreshCalls)
	}
	// Empty window serializes with an empty array, not null.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if string(raw["assets"]) != "[]" {
		t.Errorf("assets = %s, want []", raw["assets"])
	}
}

func TestGetAssetPathValidation(t *testing.T) {
	h := NewAssetHandler(&stubRegistry{}, testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/assets/{id}", h.GetAsset)

	for _, path := range []string{"/api/assets/abc", "/api/assets/0", "/api/assets/-3"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", path, rec.Code)
		}
	}
}

func TestGetAssetNotFound(t *testing.T) {
	reg := &stubRegistry{assetErr: fmt.Errorf("registry: %w", domain.ErrNotFound)}
	h := NewAssetHandler(reg, testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/assets/{id}", h.GetAsset)

	req := httptest.NewRequest(http.MethodGet, "/api/assets/99", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetBalanceRefreshBypass(t *testing.T) {
	reg := &stubRegistry{balance: 500}
	h := NewAssetHandler(reg, testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/balance/{address}", h.GetBalance)

	req := httptest.NewRequest(http.MethodGet, "/api/balance/0xabc?refresh=1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if reg.refreshBalanceCalls != 1 {
		t.Errorf("refresh balance calls = %d, want 1", reg.refreshBalanceCalls)
	}
}

type stubTransferService struct {
	err   error
	calls int
}

func (s *stubTransferService) SubmitTransfer(ctx context.Context, req domain.TransferRequest) error {
	s.calls++
	return s.err
}

func TestTransferConfirmed(t *testing.T) {
	svc := &stubTransferService{}
	h := NewTransferHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/transfer",
		jsonBody(t, domain.TransferRequest{Recipient: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", Amount: 100}))
	rec := httptest.NewRecorder()
	h.Transfer(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["confirmed"] != true {
		t.Errorf("confirmed = %v, want true", resp["confirmed"])
	}
}

func TestTransferErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid request", fmt.Errorf("distribution: %w", domain.ErrInvalidRequest), http.StatusBadRequest},
		{"missing recipient", fmt.Errorf("distribution: %w", domain.ErrInputMissing), http.StatusBadRequest},
		{"reverted", fmt.Errorf("distribution: %w: insufficient balance", domain.ErrTxReverted), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTransferHandler(&stubTransferService{err: tt.err}, testLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/transfer",
				jsonBody(t, domain.TransferRequest{Recipient: "0xabc", Amount: 1}))
			rec := httptest.NewRecorder()
			h.Transfer(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(data)
}
