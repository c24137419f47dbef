package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/v01dsy/Azurewrath/azurewrath/database/models"
	"github.com/v01dsy/Azurewrath/azurewrath/tracker"
)

func i64(v int64) *int64 { return &v }

type fakeWatchlistRepo struct {
	watchers map[int64][]int64
	err      error
}

func (f *fakeWatchlistRepo) GetWatchersForItems(ctx context.Context, itemIDs []int64) (map[int64][]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[int64][]int64)
	for _, id := range itemIDs {
		if users, ok := f.watchers[id]; ok {
			out[id] = users
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	optIns map[int64]string
}

func (f *fakeUserRepo) GetDiscordOptIns(ctx context.Context, userIDs []int64) (map[int64]string, error) {
	out := make(map[int64]string)
	for _, id := range userIDs {
		if discordID, ok := f.optIns[id]; ok {
			out[id] = discordID
		}
	}
	return out, nil
}

type fakePushRepo struct {
	subs    []*models.PushSubscription
	deleted []int64
}

func (f *fakePushRepo) GetByUserIDs(ctx context.Context, userIDs []int64) ([]*models.PushSubscription, error) {
	return f.subs, nil
}

func (f *fakePushRepo) Delete(ctx context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func changedResult(itemID int64, name string, oldRAP, newRAP int64) tracker.Result {
	return tracker.Result{
		ItemID:     itemID,
		Name:       name,
		RAP:        newRAP,
		OldRAP:     i64(oldRAP),
		RAPChanged: oldRAP != newRAP,
	}
}

func TestBuildAlerts(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		results    []tracker.Result
		watchers   map[int64][]int64
		wantCount  int
		wantTypes  map[int64]string // userID -> expected type of their first alert
		wantErr    bool
		watcherErr error
	}{
		{
			name: "one alert per watcher of a changed item",
			results: []tracker.Result{
				changedResult(1, "Dominus Empyreus", 480000, 500000),
			},
			watchers:  map[int64][]int64{1: {10, 11}},
			wantCount: 2,
			wantTypes: map[int64]string{
				10: models.NotificationRAPChange,
				11: models.NotificationRAPChange,
			},
		},
		{
			name: "unchanged items produce nothing",
			results: []tracker.Result{
				{ItemID: 1, Name: "Dominus Empyreus", RAP: 500000, OldRAP: i64(500000)},
			},
			watchers:  map[int64][]int64{1: {10}},
			wantCount: 0,
		},
		{
			name: "unwatched changes produce nothing",
			results: []tracker.Result{
				changedResult(1, "Dominus Empyreus", 480000, 500000),
			},
			watchers:  map[int64][]int64{},
			wantCount: 0,
		},
		{
			name: "duplicate watch relations collapse to one alert",
			results: []tracker.Result{
				changedResult(1, "Dominus Empyreus", 480000, 500000),
			},
			watchers:  map[int64][]int64{1: {10, 10, 10}},
			wantCount: 1,
		},
		{
			name: "both axes moved yields combined type",
			results: []tracker.Result{
				{
					ItemID: 1, Name: "Valkyrie Helm",
					Price: i64(80000), OldPrice: i64(95000), PriceChanged: true,
					RAP: 100000, OldRAP: i64(90000), RAPChanged: true,
				},
			},
			watchers:  map[int64][]int64{1: {10}},
			wantCount: 1,
			wantTypes: map[int64]string{10: models.NotificationPriceAndRAPChange},
		},
		{
			name: "watcher lookup failure propagates",
			results: []tracker.Result{
				changedResult(1, "Dominus Empyreus", 480000, 500000),
			},
			watcherErr: errors.New("connection refused"),
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(
				&fakeWatchlistRepo{watchers: tt.watchers, err: tt.watcherErr},
				&fakeUserRepo{},
				&fakePushRepo{},
				nil, nil, nil,
				"https://azurewrath.lol",
			)

			alerts, err := d.BuildAlerts(context.Background(), tt.results, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BuildAlerts() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if len(alerts) != tt.wantCount {
				t.Fatalf("BuildAlerts() returned %d alerts, want %d", len(alerts), tt.wantCount)
			}

			for _, alert := range alerts {
				if alert.CreatedAt != now {
					t.Errorf("alert CreatedAt = %v, want %v", alert.CreatedAt, now)
				}
				if want, ok := tt.wantTypes[alert.UserID]; ok && alert.Type != want {
					t.Errorf("user %d alert type = %q, want %q", alert.UserID, alert.Type, want)
				}
			}
		})
	}
}

func TestComposeAlert(t *testing.T) {
	tests := []struct {
		name        string
		result      tracker.Result
		wantType    string
		wantMessage string
		wantOld     *int64
		wantNew     *int64
	}{
		{
			name:        "rap increase",
			result:      changedResult(1, "Dominus Empyreus", 480000, 500000),
			wantType:    models.NotificationRAPChange,
			wantMessage: "Dominus Empyreus: RAP increased from 480,000 to 500,000",
			wantOld:     i64(480000),
			wantNew:     i64(500000),
		},
		{
			name:        "rap decrease",
			result:      changedResult(1, "Dominus Empyreus", 500000, 480000),
			wantType:    models.NotificationRAPChange,
			wantMessage: "Dominus Empyreus: RAP decreased from 500,000 to 480,000",
			wantOld:     i64(500000),
			wantNew:     i64(480000),
		},
		{
			name: "price only",
			result: tracker.Result{
				ItemID: 1, Name: "Valkyrie Helm",
				Price: i64(80000), OldPrice: i64(95000), PriceChanged: true,
				RAP: 100000, OldRAP: i64(100000),
			},
			wantType:    models.NotificationPriceChange,
			wantMessage: "Valkyrie Helm: price decreased from 95,000 to 80,000",
			wantOld:     i64(95000),
			wantNew:     i64(80000),
		},
		{
			name: "both axes prefer rap in the summary slot",
			result: tracker.Result{
				ItemID: 1, Name: "Valkyrie Helm",
				Price: i64(80000), OldPrice: i64(95000), PriceChanged: true,
				RAP: 110000, OldRAP: i64(100000), RAPChanged: true,
			},
			wantType:    models.NotificationPriceAndRAPChange,
			wantMessage: "Valkyrie Helm: RAP increased from 100,000 to 110,000, price decreased from 95,000 to 80,000",
			wantOld:     i64(100000),
			wantNew:     i64(110000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotMessage, gotOld, gotNew := composeAlert(&tt.result)
			if gotType != tt.wantType {
				t.Errorf("type = %q, want %q", gotType, tt.wantType)
			}
			if gotMessage != tt.wantMessage {
				t.Errorf("message = %q, want %q", gotMessage, tt.wantMessage)
			}
			if gotOld == nil || *gotOld != *tt.wantOld {
				t.Errorf("oldValue = %v, want %v", gotOld, tt.wantOld)
			}
			if gotNew == nil || *gotNew != *tt.wantNew {
				t.Errorf("newValue = %v, want %v", gotNew, tt.wantNew)
			}
		})
	}
}

func TestComposePushPayload(t *testing.T) {
	d := NewDispatcher(nil, nil, nil, nil, nil, nil, "https://azurewrath.lol")

	single := d.composePushPayload([]*models.Notification{
		{ItemID: 7, Message: "Dominus Empyreus: RAP increased from 480,000 to 500,000"},
	})
	if single.Body != "Dominus Empyreus: RAP increased from 480,000 to 500,000" {
		t.Errorf("single body = %q", single.Body)
	}
	if single.URL != "https://azurewrath.lol/item/7" {
		t.Errorf("single url = %q", single.URL)
	}

	summary := d.composePushPayload([]*models.Notification{
		{ItemID: 7, Message: "a"},
		{ItemID: 8, Message: "b"},
		{ItemID: 9, Message: "c"},
	})
	if summary.Body != "3 items on your watchlist have changed" {
		t.Errorf("summary body = %q", summary.Body)
	}
	if summary.URL != "https://azurewrath.lol/notifications" {
		t.Errorf("summary url = %q", summary.URL)
	}
}

type fakePushSender struct {
	goneByID map[int64]bool
	failByID map[int64]bool
	sentTo   []int64
}

func (f *fakePushSender) Send(ctx context.Context, sub *models.PushSubscription, payload PushPayload) (bool, error) {
	if f.goneByID[sub.ID] {
		return true, nil
	}
	if f.failByID[sub.ID] {
		return false, errors.New("push service unavailable")
	}
	f.sentTo = append(f.sentTo, sub.ID)
	return false, nil
}

func TestDeliverPush(t *testing.T) {
	tests := []struct {
		name        string
		subs        []*models.PushSubscription
		goneByID    map[int64]bool
		failByID    map[int64]bool
		wantSentTo  []int64
		wantDeleted []int64
	}{
		{
			name: "expired endpoint is cleaned up and others still send",
			subs: []*models.PushSubscription{
				{ID: 1, UserID: 10, Endpoint: "https://push.example/a"},
				{ID: 2, UserID: 20, Endpoint: "https://push.example/b"},
			},
			goneByID:    map[int64]bool{1: true},
			wantSentTo:  []int64{2},
			wantDeleted: []int64{1},
		},
		{
			name: "transient failure keeps the subscription",
			subs: []*models.PushSubscription{
				{ID: 1, UserID: 10, Endpoint: "https://push.example/a"},
				{ID: 2, UserID: 20, Endpoint: "https://push.example/b"},
			},
			failByID:    map[int64]bool{1: true},
			wantSentTo:  []int64{2},
			wantDeleted: nil,
		},
		{
			name: "all endpoints healthy",
			subs: []*models.PushSubscription{
				{ID: 1, UserID: 10, Endpoint: "https://push.example/a"},
			},
			wantSentTo:  []int64{1},
			wantDeleted: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pushRepo := &fakePushRepo{subs: tt.subs}
			sender := &fakePushSender{goneByID: tt.goneByID, failByID: tt.failByID}

			d := NewDispatcher(
				&fakeWatchlistRepo{},
				&fakeUserRepo{},
				pushRepo,
				sender,
				nil,
				nil,
				"https://azurewrath.lol",
			)

			alerts := []*models.Notification{
				{UserID: 10, ItemID: 1, Type: models.NotificationRAPChange, Message: "Dominus Empyreus: RAP increased from 480,000 to 500,000"},
				{UserID: 20, ItemID: 1, Type: models.NotificationRAPChange, Message: "Dominus Empyreus: RAP increased from 480,000 to 500,000"},
			}
			d.Deliver(context.Background(), alerts, nil)

			if !int64SliceEqual(sender.sentTo, tt.wantSentTo) {
				t.Errorf("sent to %v, want %v", sender.sentTo, tt.wantSentTo)
			}
			if !int64SliceEqual(pushRepo.deleted, tt.wantDeleted) {
				t.Errorf("deleted %v, want %v", pushRepo.deleted, tt.wantDeleted)
			}
		})
	}
}

func int64SliceEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
