package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"wf_reminder_bot/internal/domain/reminder"
)

const itemsBody = `{"apiVersion": "0.9", "data": [
	{"id": "1", "slug": "serration", "maxRank": 10, "i18n": {"en": {"name": "Serration"}}},
	{"id": "2", "slug": "forma_blueprint", "i18n": {"en": {"name": "Forma Blueprint"}}},
	{"id": "3", "slug": "arcane_energize", "maxRank": 5, "i18n": {"en": {"name": "Arcane Energize"}}},
	{"id": "4", "slug": "", "i18n": {"en": {"name": "Broken"}}}
]}`

const ordersBody = `{"data": [
	{"type": "sell", "platinum": 30, "quantity": 1, "rank": 0, "visible": true, "user": {"ingameName": "offline-guy", "status": "offline"}},
	{"type": "sell", "platinum": 45, "quantity": 2, "rank": 10, "visible": true, "user": {"ingameName": "maxed", "status": "ingame"}},
	{"type": "sell", "platinum": 40, "quantity": 1, "rank": 0, "visible": true, "user": {"ingameName": "cheap", "status": "online"}},
	{"type": "sell", "platinum": 42, "quantity": 1, "rank": 0, "visible": true, "user": {"ingameName": "second", "status": "ingame"}},
	{"type": "buy", "platinum": 38, "quantity": 1, "rank": 10, "visible": true, "user": {"ingameName": "buyer", "status": "ingame"}},
	{"type": "trade", "platinum": 1, "visible": true, "user": {"ingameName": "weird", "status": "ingame"}}
]}`

type fakeMarket struct {
	itemCalls atomic.Int32
	failItems atomic.Bool
}

func (f *fakeMarket) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Platform") != "pc" || r.Header.Get("Language") != "en" {
			http.Error(w, "missing headers", http.StatusBadRequest)
			return
		}
		switch r.URL.Path {
		case "/v2/items":
			f.itemCalls.Add(1)
			if f.failItems.Load() {
				http.Error(w, "down", http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(itemsBody))
		case "/v2/orders/item/serration":
			_, _ = w.Write([]byte(ordersBody))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func intPtr(v int) *int { return &v }

func TestItemsCachingAndInvalidate(t *testing.T) {
	fake := &fakeMarket{}
	srv := fake.server(t)
	c := NewClient(srv.URL, time.Second, time.Hour)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }
	ctx := context.Background()

	items, err := c.Items(ctx)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items (blank slug dropped), got %d", len(items))
	}
	if items[0].MaxRank == nil || *items[0].MaxRank != 10 || items[1].MaxRank != nil {
		t.Fatalf("unexpected ranks %+v", items)
	}

	if _, err := c.Items(ctx); err != nil {
		t.Fatalf("Items: %v", err)
	}
	if n := fake.itemCalls.Load(); n != 1 {
		t.Fatalf("expected cached catalog, got %d fetches", n)
	}

	clock = clock.Add(2 * time.Hour)
	if _, err := c.Items(ctx); err != nil {
		t.Fatalf("Items: %v", err)
	}
	if n := fake.itemCalls.Load(); n != 2 {
		t.Fatalf("expected a refresh after the ttl, got %d fetches", n)
	}

	c.Invalidate()
	if _, err := c.Items(ctx); err != nil {
		t.Fatalf("Items: %v", err)
	}
	if n := fake.itemCalls.Load(); n != 3 {
		t.Fatalf("expected a reload after Invalidate, got %d fetches", n)
	}
}

func TestItemsKeepsStaleCatalogOnFailure(t *testing.T) {
	fake := &fakeMarket{}
	srv := fake.server(t)
	c := NewClient(srv.URL, time.Second, time.Minute)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }
	ctx := context.Background()

	if _, err := c.Items(ctx); err != nil {
		t.Fatalf("Items: %v", err)
	}
	fake.failItems.Store(true)
	clock = clock.Add(time.Hour)

	items, err := c.Items(ctx)
	if err != nil || len(items) != 3 {
		t.Fatalf("expected stale catalog, got %d items, err %v", len(items), err)
	}

	c.Invalidate()
	var se *StatusError
	if _, err := c.Items(ctx); !errors.As(err, &se) || se.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected a 503 StatusError without a cached catalog, got %v", err)
	}
}

func TestFindItem(t *testing.T) {
	fake := &fakeMarket{}
	c := NewClient(fake.server(t).URL, time.Second, time.Hour)
	ctx := context.Background()

	item, _, err := c.FindItem(ctx, "SERRATION")
	if err != nil || item == nil || item.Slug != "serration" {
		t.Fatalf("expected serration, got %+v %v", item, err)
	}

	item, suggestions, err := c.FindItem(ctx, "energ")
	if err != nil || item != nil {
		t.Fatalf("expected no exact match, got %+v %v", item, err)
	}
	if len(suggestions) == 0 || suggestions[0].Slug != "arcane_energize" {
		t.Fatalf("unexpected suggestions %+v", suggestions)
	}
}

func TestBestOrderAndTopOrders(t *testing.T) {
	fake := &fakeMarket{}
	c := NewClient(fake.server(t).URL, time.Second, time.Hour)
	ctx := context.Background()

	best, err := c.BestOrder(ctx, "serration", reminder.SideSell, nil)
	if err != nil || best == nil || best.IngameName != "cheap" || best.Price != 40 {
		t.Fatalf("unexpected best sell %+v %v", best, err)
	}

	best, err = c.BestOrder(ctx, "serration", reminder.SideSell, intPtr(10))
	if err != nil || best == nil || best.IngameName != "maxed" || best.Price != 45 {
		t.Fatalf("unexpected ranked best sell %+v %v", best, err)
	}

	best, err = c.BestOrder(ctx, "serration", reminder.SideBuy, intPtr(0))
	if err != nil || best != nil {
		t.Fatalf("expected no rank 0 buy order, got %+v %v", best, err)
	}

	top, err := c.TopOrders(ctx, "serration", reminder.SideSell, nil, 2)
	if err != nil {
		t.Fatalf("TopOrders: %v", err)
	}
	if len(top) != 2 || top[0].IngameName != "cheap" || top[1].IngameName != "second" {
		t.Fatalf("unexpected top orders %+v", top)
	}

	if _, err := c.Orders(ctx, "unknown_item"); err == nil {
		t.Fatalf("expected an error for an unknown item")
	}
}

func TestOrdersNotFoundDropsCatalog(t *testing.T) {
	fake := &fakeMarket{}
	c := NewClient(fake.server(t).URL, time.Second, time.Hour)
	ctx := context.Background()

	if _, _, err := c.FindItem(ctx, "serration"); err != nil {
		t.Fatalf("FindItem: %v", err)
	}
	if _, err := c.Orders(ctx, "serration"); err != nil {
		t.Fatalf("Orders: %v", err)
	}
	if _, _, err := c.FindItem(ctx, "serration"); err != nil {
		t.Fatalf("FindItem: %v", err)
	}
	if n := fake.itemCalls.Load(); n != 1 {
		t.Fatalf("catalog should stay cached after a good order fetch, got %d fetches", n)
	}

	var se *StatusError
	if _, err := c.Orders(ctx, "vaulted_item"); !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("expected a 404 StatusError, got %v", err)
	}
	if _, _, err := c.FindItem(ctx, "serration"); err != nil {
		t.Fatalf("FindItem: %v", err)
	}
	if n := fake.itemCalls.Load(); n != 2 {
		t.Fatalf("expected a catalog reload after a 404, got %d fetches", n)
	}
}
