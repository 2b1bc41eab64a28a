package app

import (
	"context"

	"wf_reminder_bot/internal/domain/fissure"
	"wf_reminder_bot/internal/domain/market"
	"wf_reminder_bot/internal/domain/reminder"
)

// WorldStateSource yields the raw world-state sections keyed by name.
type WorldStateSource interface {
	WorldState(ctx context.Context) (map[string]map[string]any, error)
}

// FissureSource yields the current fissure snapshot.
type FissureSource interface {
	Fissures(ctx context.Context) ([]fissure.Fissure, error)
}

// MarketSource is the marketplace adapter: catalog lookup and order queries.
type MarketSource interface {
	FindItem(ctx context.Context, query string) (*market.Item, []market.Item, error)
	BestOrder(ctx context.Context, slug string, side reminder.Side, rank *int) (*market.BestOrder, error)
	TopOrders(ctx context.Context, slug string, side reminder.Side, rank *int, n int) ([]market.Order, error)
}
