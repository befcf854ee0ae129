package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/verifychain/verifychain/internal/domain"
)

type stubLedger struct {
	next    int64
	nextErr error

	assets    map[int64]domain.Asset
	assetErrs map[int64]error

	balances   map[string]int64
	balanceErr error

	assetCalls []int64
}

func (s *stubLedger) NextAssetID(ctx context.Context) (int64, error) {
	return s.next, s.nextErr
}

func (s *stubLedger) Asset(ctx context.Context, id int64) (domain.Asset, error) {
	s.assetCalls = append(s.assetCalls, id)
	if err, ok := s.assetErrs[id]; ok {
		return domain.Asset{}, err
	}
	asset, ok := s.assets[id]
	if !ok {
		return domain.Asset{}, domain.ErrNotFound
	}
	return asset, nil
}

func (s *stubLedger) BalanceOf(ctx context.Context, address string) (int64, error) {
	if s.balanceErr != nil {
		return 0, s.balanceErr
	}
	return s.balances[address], nil
}

func ledgerWithAssets(next int64) *stubLedger {
	assets := make(map[int64]domain.Asset)
	for id := int64(1); id <= next; id++ {
		assets[id] = domain.Asset{
			ID:     id,
			Name:   fmt.Sprintf("Bond %d", id),
			ISIN:   fmt.Sprintf("IN%010d", id),
			Active: true,
		}
	}
	return &stubLedger{next: next, assets: assets}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func assetIDs(window domain.RegistryWindow) []int64 {
	ids := make([]int64, 0, len(window.Assets))
	for _, a := range window.Assets {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestRefreshWindowIDs(t *testing.T) {
	tests := []struct {
		name string
		next int64
		size int
		want []int64
	}{
		{"full window", 5, 3, []int64{5, 4, 3}},
		{"single asset", 1, 3, []int64{1}},
		{"empty ledger", 0, 3, nil},
		{"two assets", 2, 3, []int64{2, 1}},
		{"size one", 5, 1, []int64{5}},
		{"default size on non-positive", 5, 0, []int64{5, 4, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := ledgerWithAssets(tt.next)
			svc := NewRegistryService(ledger, nil, nil, nil, tt.size, discardLogger())

			window, err := svc.Refresh(context.Background())
			if err != nil {
				t.Fatalf("Refresh(): %v", err)
			}
			if window.NextAssetID != tt.next {
				t.Errorf("NextAssetID = %d, want %d", window.NextAssetID, tt.next)
			}

			got := assetIDs(window)
			if len(got) != len(tt.want) {
				t.Fatalf("window ids = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("window ids = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestRefreshSkipsUnreadableAsset(t *testing.T) {
	ledger := ledgerWithAssets(5)
	ledger.assetErrs = map[int64]error{4: errors.New("rpc gone")}

	svc := NewRegistryService(ledger, nil, nil, nil, 3, discardLogger())
	window, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh(): %v", err)
	}

	got := assetIDs(window)
	want := []int64{5, 3}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("window ids = %v, want %v", got, want)
	}
}

func TestRefreshCounterFailure(t *testing.T) {
	ledger := &stubLedger{nextErr: errors.New("rpc down")}
	svc := NewRegistryService(ledger, nil, nil, nil, 3, discardLogger())

	if _, err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() succeeded with broken counter")
	}
	if len(ledger.assetCalls) != 0 {
		t.Errorf("asset reads = %v, want none", ledger.assetCalls)
	}
}

func TestWindowReflectsLastRefresh(t *testing.T) {
	ledger := ledgerWithAssets(2)
	svc := NewRegistryService(ledger, nil, nil, nil, 3, discardLogger())

	if got := svc.Window(); got.RefreshedAt.IsZero() == false {
		t.Errorf("Window() before refresh = %+v, want zero", got)
	}

	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh(): %v", err)
	}
	window := svc.Window()
	if window.NextAssetID != 2 || len(window.Assets) != 2 {
		t.Errorf("Window() = %+v, want 2 assets with next id 2", window)
	}
}

func TestAssetFallsBackToLedger(t *testing.T) {
	ledger := ledgerWithAssets(3)
	svc := NewRegistryService(ledger, nil, nil, nil, 3, discardLogger())

	asset, err := svc.Asset(context.Background(), 2)
	if err != nil {
		t.Fatalf("Asset(2): %v", err)
	}
	if asset.ID != 2 {
		t.Errorf("asset.ID = %d, want 2", asset.ID)
	}

	if _, err := svc.Asset(context.Background(), 99); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Asset(99) err = %v, want ErrNotFound", err)
	}
}

func TestBalanceReadsLedger(t *testing.T) {
	ledger := ledgerWithAssets(1)
	ledger.balances = map[string]int64{"0xabc": 42}
	svc := NewRegistryService(ledger, nil, nil, nil, 3, discardLogger())

	balance, err := svc.Balance(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("Balance(): %v", err)
	}
	if balance != 42 {
		t.Errorf("balance = %d, want 42", balance)
	}
}
