package app

import (
	"context"
	"fmt"
	"strings"

	"wf_reminder_bot/internal/domain/market"
	"wf_reminder_bot/internal/domain/reminder"
)

// QuoteDepth is how many orders per side a price lookup shows.
const QuoteDepth = 3

// ItemNotFoundError carries the close matches for an unknown item query.
type ItemNotFoundError struct {
	Query       string
	Suggestions []market.Item
}

func (e *ItemNotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("item %q not found", e.Query)
	}
	names := make([]string, 0, len(e.Suggestions))
	for _, s := range e.Suggestions {
		names = append(names, s.Name)
	}
	return fmt.Sprintf("item %q not found, did you mean: %s", e.Query, strings.Join(names, ", "))
}

func (e *ItemNotFoundError) Is(target error) bool { return target == ErrItemNotFound }

// Quote is the current order book summary of one item.
type Quote struct {
	Item market.Item
	Sell []market.Order
	Buy  []market.Order
}

// MarketService answers price lookups for the /market command.
type MarketService struct {
	source MarketSource
}

func NewMarketService(source MarketSource) *MarketService {
	return &MarketService{source: source}
}

// ResolveItem finds the catalog item for a query. Unknown items yield an
// *ItemNotFoundError.
func (s *MarketService) ResolveItem(ctx context.Context, query string) (market.Item, error) {
	item, suggestions, err := s.source.FindItem(ctx, query)
	if err != nil {
		return market.Item{}, fmt.Errorf("%w: %v", ErrMarketUnavailable, err)
	}
	if item == nil {
		return market.Item{}, &ItemNotFoundError{Query: strings.TrimSpace(query), Suggestions: suggestions}
	}
	return *item, nil
}

// Lookup resolves the item and returns the best orders on both sides.
func (s *MarketService) Lookup(ctx context.Context, query string) (*Quote, error) {
	item, err := s.ResolveItem(ctx, query)
	if err != nil {
		return nil, err
	}
	sell, err := s.TopOrders(ctx, item.Slug, reminder.SideSell, nil, QuoteDepth)
	if err != nil {
		return nil, err
	}
	buy, err := s.TopOrders(ctx, item.Slug, reminder.SideBuy, nil, QuoteDepth)
	if err != nil {
		return nil, err
	}
	return &Quote{Item: item, Sell: sell, Buy: buy}, nil
}

func (s *MarketService) TopOrders(ctx context.Context, slug string, side reminder.Side, rank *int, n int) ([]market.Order, error) {
	orders, err := s.source.TopOrders(ctx, slug, side, rank, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarketUnavailable, err)
	}
	return orders, nil
}
