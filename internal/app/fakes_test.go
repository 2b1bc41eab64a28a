package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"wf_reminder_bot/internal/domain/fissure"
	"wf_reminder_bot/internal/domain/market"
	"wf_reminder_bot/internal/domain/reminder"
	"wf_reminder_bot/internal/infra/storage"
)

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newRepo(t *testing.T) *storage.FileReminderRepository {
	t.Helper()
	return storage.NewFileReminderRepository(filepath.Join(t.TempDir(), "reminders.json"), discardLogger())
}

func newTestRenderer() *Renderer {
	r := NewRenderer(time.UTC)
	r.now = fixedNow
	return r
}

type sentMessage struct {
	ChatID int64
	Text   string
}

type fakeClient struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (c *fakeClient) SendMessage(chatID int64, text string, _ *telebot.SendOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (c *fakeClient) messages() []sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentMessage(nil), c.sent...)
}

type fakeWorldState struct {
	sections map[string]map[string]any
	err      error
}

func (f *fakeWorldState) WorldState(context.Context) (map[string]map[string]any, error) {
	return f.sections, f.err
}

type fakeFissures struct {
	snapshot []fissure.Fissure
	err      error
	calls    int
}

func (f *fakeFissures) Fissures(context.Context) ([]fissure.Fissure, error) {
	f.calls++
	return f.snapshot, f.err
}

type fakeMarket struct {
	items  []market.Item
	prices map[string]int // slug -> best price
	orders []market.Order
	onBest func(slug string)
	err    error
}

func (f *fakeMarket) FindItem(_ context.Context, query string) (*market.Item, []market.Item, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	exact, suggestions := market.Match(f.items, query, 3)
	return exact, suggestions, nil
}

func (f *fakeMarket) BestOrder(_ context.Context, slug string, _ reminder.Side, rank *int) (*market.BestOrder, error) {
	if f.onBest != nil {
		f.onBest(slug)
	}
	if f.err != nil {
		return nil, f.err
	}
	price, ok := f.prices[slug]
	if !ok {
		return nil, nil
	}
	return &market.BestOrder{Price: price, Quantity: 1, IngameName: "Trader", Rank: rank}, nil
}

func (f *fakeMarket) TopOrders(_ context.Context, _ string, side reminder.Side, rank *int, n int) ([]market.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := market.Filter(f.orders, side, rank)
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func intPtr(v int) *int { return &v }

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("01HTEST%019d", n)
	}
}

var errUpstream = errors.New("upstream down")
