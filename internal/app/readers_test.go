package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"wf_reminder_bot/internal/domain/cycle"
	"wf_reminder_bot/internal/domain/fissure"
	"wf_reminder_bot/internal/domain/market"
	"wf_reminder_bot/internal/domain/reminder"
)

func TestCycleTrackerStatuses(t *testing.T) {
	regions, err := cycle.LoadRegions()
	if err != nil {
		t.Fatalf("LoadRegions: %v", err)
	}
	world := &fakeWorldState{sections: map[string]map[string]any{
		// Stale by 100 seconds: day has ended, night runs for another 2900s.
		"cetusCycle":   {"isDay": true, "expiry": testNow.Add(-100 * time.Second).Format(time.RFC3339)},
		"cambionCycle": {"state": "", "active": "fass", "expiry": testNow.Add(time.Minute).Format(time.RFC3339)},
		"vallisCycle":  {"isWarm": "maybe", "expiry": testNow.Add(time.Minute).Format(time.RFC3339)},
	}}
	tracker := NewCycleTracker(world, regions)
	tracker.now = fixedNow

	statuses, err := tracker.Statuses(context.Background())
	if err != nil {
		t.Fatalf("Statuses: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected cetus and cambion only, got %+v", statuses)
	}
	now := testNow.Unix()
	if statuses[0].Region != "cetus" || statuses[0].PhaseKey != "night" || statuses[0].NextChangeTS != now-100+3000 {
		t.Fatalf("unexpected cetus status %+v", statuses[0])
	}
	if statuses[1].Region != "cambion" || statuses[1].PhaseKey != "fass" {
		t.Fatalf("unexpected cambion status %+v", statuses[1])
	}

	if _, err := tracker.Status(context.Background(), "vallis"); !errors.Is(err, ErrCycleUnavailable) {
		t.Fatalf("expected ErrCycleUnavailable, got %v", err)
	}
}

func TestFissureBoardFilters(t *testing.T) {
	source := &fakeFissures{snapshot: []fissure.Fissure{
		{ID: "1", MissionType: "Survival", Tier: "Axi"},
		{ID: "2", MissionType: "Defense", Tier: "Lith"},
		{ID: "3", MissionType: "Capture", Tier: "Neo", IsHard: true},
		{ID: "4", MissionType: "Spy", Tier: "Meso", IsStorm: true},
		{ID: "5", MissionType: "Rescue", Tier: "Lith", Expired: true},
	}}
	board := NewFissureBoard(source)
	board.now = fixedNow

	all, err := board.Active(context.Background(), reminder.DifficultyAll)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if len(all.Normal) != 2 || all.Normal[0].ID != "2" || len(all.Hard) != 1 || len(all.Storm) != 1 {
		t.Fatalf("unexpected board %+v", all)
	}

	hard, err := board.Active(context.Background(), reminder.DifficultyHard)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if len(hard.Normal) != 0 || len(hard.Storm) != 0 || len(hard.Hard) != 1 {
		t.Fatalf("hard filter leaked other groups %+v", hard)
	}

	source.err = errUpstream
	if _, err := board.Active(context.Background(), reminder.DifficultyAll); err == nil {
		t.Fatalf("expected the fetch error")
	}
}

func TestMarketServiceLookup(t *testing.T) {
	source := &fakeMarket{
		items: []market.Item{{Slug: "forma_blueprint", Name: "Forma Blueprint"}},
		orders: []market.Order{
			{Side: reminder.SideSell, Platinum: 12, Quantity: 3, Visible: true, Status: "ingame", IngameName: "a"},
			{Side: reminder.SideSell, Platinum: 9, Quantity: 1, Visible: true, Status: "online", IngameName: "b"},
			{Side: reminder.SideSell, Platinum: 8, Quantity: 1, Visible: true, Status: "offline", IngameName: "c"},
			{Side: reminder.SideBuy, Platinum: 7, Quantity: 5, Visible: true, Status: "ingame", IngameName: "d"},
		},
	}
	svc := NewMarketService(source)

	q, err := svc.Lookup(context.Background(), "forma blueprint")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(q.Sell) != 2 || q.Sell[0].IngameName != "b" || len(q.Buy) != 1 {
		t.Fatalf("unexpected quote %+v", q)
	}

	text := newTestRenderer().Quote(q)
	if !strings.Contains(text, "<b>9</b> pl x1, b") || !strings.Contains(text, "I want to buy") {
		t.Fatalf("unexpected quote rendering %q", text)
	}

	if _, err := svc.Lookup(context.Background(), "nothing like it"); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestRendererListing(t *testing.T) {
	r := newTestRenderer()
	items := []*reminder.Reminder{
		{ID: "01HTEST0000000000000000001", Kind: reminder.KindCycle, DisplayName: "Orb Vallis - Cold", TriggerTS: testNow.Add(2 * time.Hour).Unix()},
		{ID: "01HTEST0000000000000000002", Kind: reminder.KindMarket, DisplayName: "Serration (rank 10)",
			Market: &reminder.MarketTarget{Side: reminder.SideSell, TargetPrice: 50}},
	}
	text := r.ReminderList(items)
	for _, want := range []string{
		"1. [cycle] Orb Vallis - Cold, at 14:00 (2 hours from now)",
		"2. [market] Serration (rank 10), sell order at most 50 pl",
		"<code>0000000002</code>",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("listing %q does not contain %q", text, want)
		}
	}
	if got := r.ReminderList(nil); got != "You have no pending reminders." {
		t.Fatalf("unexpected empty listing %q", got)
	}
}
