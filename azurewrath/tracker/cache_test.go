package tracker

import (
	"context"
	"errors"
	"testing"

	"github.com/v01dsy/Azurewrath/azurewrath/database/models"
)

type fakeHistoryRepo struct {
	prices map[int64]int64
	raps   map[int64]int64
	err    error
}

func (f *fakeHistoryRepo) LatestPrices(ctx context.Context) (map[int64]int64, error) {
	return f.prices, f.err
}

func (f *fakeHistoryRepo) LatestRAPs(ctx context.Context) (map[int64]int64, error) {
	return f.raps, f.err
}

func (f *fakeHistoryRepo) GetRecentByItem(ctx context.Context, itemID int64, limit int) ([]*models.PriceHistory, error) {
	return nil, f.err
}

func TestStateCacheLoad(t *testing.T) {
	tests := []struct {
		name    string
		repo    *fakeHistoryRepo
		wantLen int
		wantErr bool
	}{
		{
			name: "axes merge by item",
			repo: &fakeHistoryRepo{
				prices: map[int64]int64{1: 100, 2: 200},
				raps:   map[int64]int64{2: 250, 3: 300},
			},
			wantLen: 3,
		},
		{
			name:    "empty history",
			repo:    &fakeHistoryRepo{prices: map[int64]int64{}, raps: map[int64]int64{}},
			wantLen: 0,
		},
		{
			name:    "repo failure",
			repo:    &fakeHistoryRepo{err: errors.New("connection refused")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewStateCache()
			err := cache.Load(context.Background(), tt.repo)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got := cache.Len(); got != tt.wantLen {
				t.Errorf("Len() = %d, want %d", got, tt.wantLen)
			}
		})
	}
}

func TestStateCacheGetAfterLoad(t *testing.T) {
	cache := NewStateCache()
	repo := &fakeHistoryRepo{
		prices: map[int64]int64{1: 100},
		raps:   map[int64]int64{1: 150, 2: 300},
	}
	if err := cache.Load(context.Background(), repo); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	price, rap := cache.Get(1)
	if price == nil || *price != 100 {
		t.Errorf("Get(1) price = %v, want 100", price)
	}
	if rap == nil || *rap != 150 {
		t.Errorf("Get(1) rap = %v, want 150", rap)
	}

	price, rap = cache.Get(2)
	if price != nil {
		t.Errorf("Get(2) price = %v, want nil", price)
	}
	if rap == nil || *rap != 300 {
		t.Errorf("Get(2) rap = %v, want 300", rap)
	}

	price, rap = cache.Get(99)
	if price != nil || rap != nil {
		t.Errorf("Get(99) = (%v, %v), want both nil", price, rap)
	}
}

func TestStateCacheUpdateNilLeavesAxis(t *testing.T) {
	cache := NewStateCache()
	cache.Update(1, i64(100), i64(150))

	// A nil price must not erase the previously seen price
	cache.Update(1, nil, i64(175))

	price, rap := cache.Get(1)
	if price == nil || *price != 100 {
		t.Errorf("price = %v, want 100", price)
	}
	if rap == nil || *rap != 175 {
		t.Errorf("rap = %v, want 175", rap)
	}
}

func TestStateCacheApplyResults(t *testing.T) {
	cache := NewStateCache()
	cache.Update(1, i64(100), i64(150))

	cache.ApplyResults([]Result{
		{ItemID: 1, Price: nil, RAP: 160},
		{ItemID: 2, Price: i64(500), RAP: 600},
	})

	price, rap := cache.Get(1)
	if price == nil || *price != 100 {
		t.Errorf("item 1 price = %v, want 100", price)
	}
	if rap == nil || *rap != 160 {
		t.Errorf("item 1 rap = %v, want 160", rap)
	}

	price, rap = cache.Get(2)
	if price == nil || *price != 500 {
		t.Errorf("item 2 price = %v, want 500", price)
	}
	if rap == nil || *rap != 600 {
		t.Errorf("item 2 rap = %v, want 600", rap)
	}
}
