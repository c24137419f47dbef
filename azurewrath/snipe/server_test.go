package snipe

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/v01dsy/Azurewrath/azurewrath/database/models"
)

type fakeSnipeRepo struct {
	configs map[int64][]*models.SnipeConfig
	deals   []*models.SnipeDeal
	err     error
}

func (f *fakeSnipeRepo) GetEnabledConfigs(ctx context.Context, userID int64) ([]*models.SnipeConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.configs[userID], nil
}

func (f *fakeSnipeRepo) GetDealsAfter(ctx context.Context, watermark int64, window time.Duration, limit int) ([]*models.SnipeDeal, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*models.SnipeDeal, 0)
	for _, d := range f.deals {
		if d.ID > watermark {
			out = append(out, d)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func idDeal(id, assetID int64, pct float64) *models.SnipeDeal {
	return &models.SnipeDeal{
		ID:      id,
		AssetID: assetID,
		Name:    "test item",
		Price:   70000,
		RAP:     100000,
		Deal:    pct,
	}
}

func newTestServer(repo *fakeSnipeRepo) *Server {
	return NewServer(ServerConfig{
		Port:        3001,
		PollSeconds: 5,
		WindowSecs:  120,
		BatchSize:   50,
	}, repo, nil, nil)
}

func TestPollOnce(t *testing.T) {
	configs := map[int64][]*models.SnipeConfig{
		42: {{ID: 1, UserID: 42, MinDeal: 20}},
	}

	tests := []struct {
		name          string
		repo          *fakeSnipeRepo
		watermark     int64
		wantEmitted   bool
		wantWatermark int64
		wantFrames    int
	}{
		{
			name: "matching deals are emitted and advance the watermark",
			repo: &fakeSnipeRepo{
				configs: configs,
				deals:   []*models.SnipeDeal{idDeal(1, 100, 30), idDeal(2, 200, 25)},
			},
			wantEmitted:   true,
			wantWatermark: 2,
			wantFrames:    2,
		},
		{
			name: "non-matching deals still advance the watermark",
			repo: &fakeSnipeRepo{
				configs: configs,
				deals:   []*models.SnipeDeal{idDeal(1, 100, 5), idDeal(2, 200, 10)},
			},
			wantEmitted:   false,
			wantWatermark: 2,
			wantFrames:    0,
		},
		{
			name: "already-seen deals are not refetched",
			repo: &fakeSnipeRepo{
				configs: configs,
				deals:   []*models.SnipeDeal{idDeal(1, 100, 30), idDeal(2, 200, 30)},
			},
			watermark:     2,
			wantEmitted:   false,
			wantWatermark: 2,
			wantFrames:    0,
		},
		{
			name: "no configs skips the deal query entirely",
			repo: &fakeSnipeRepo{
				configs: map[int64][]*models.SnipeConfig{},
				deals:   []*models.SnipeDeal{idDeal(1, 100, 30)},
			},
			wantEmitted:   false,
			wantWatermark: 0,
			wantFrames:    0,
		},
		{
			name:          "query errors keep the connection and watermark",
			repo:          &fakeSnipeRepo{err: errors.New("connection refused")},
			watermark:     7,
			wantEmitted:   false,
			wantWatermark: 7,
			wantFrames:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(tt.repo)

			var buf bytes.Buffer
			w := bufio.NewWriter(&buf)

			emitted, watermark, err := s.pollOnce(w, 42, tt.watermark)
			if err != nil {
				t.Fatalf("pollOnce() error = %v", err)
			}
			if emitted != tt.wantEmitted {
				t.Errorf("emitted = %v, want %v", emitted, tt.wantEmitted)
			}
			if watermark != tt.wantWatermark {
				t.Errorf("watermark = %d, want %d", watermark, tt.wantWatermark)
			}

			w.Flush()
			frames := strings.Count(buf.String(), "data: ")
			if frames != tt.wantFrames {
				t.Errorf("emitted %d data frames, want %d:\n%s", frames, tt.wantFrames, buf.String())
			}
		})
	}
}

func TestPollOnceEventBody(t *testing.T) {
	img := "https://tr.rbxcdn.com/abc/420/420/Image/Png"
	repo := &fakeSnipeRepo{
		configs: map[int64][]*models.SnipeConfig{
			42: {{ID: 1, UserID: 42, MinDeal: 20}},
		},
		deals: []*models.SnipeDeal{{
			ID:       5,
			AssetID:  1029025,
			Name:     "Dominus Empyreus",
			ImageURL: &img,
			Price:    70000,
			RAP:      100000,
			Deal:     30,
		}},
	}

	s := newTestServer(repo)

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if _, _, err := s.pollOnce(w, 42, 0); err != nil {
		t.Fatalf("pollOnce() error = %v", err)
	}
	w.Flush()

	got := buf.String()
	want := `data: {"assetId":1029025,"name":"Dominus Empyreus","imageUrl":"https://tr.rbxcdn.com/abc/420/420/Image/Png","price":70000,"rap":100000,"deal":30}` + "\n\n"
	if got != want {
		t.Errorf("frame = %q, want %q", got, want)
	}
}
