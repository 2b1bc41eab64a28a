// internal/domain/market/market.go
package market

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"wf_reminder_bot/internal/domain/reminder"
)

// Item is one tradable catalog entry.
type Item struct {
	Slug    string
	Name    string
	MaxRank *int // nil for items without ranks
}

// Rankable reports whether the item is traded at specific ranks (mods, arcanes).
func (i Item) Rankable() bool { return i.MaxRank != nil }

// Order is a single listing on the order book.
type Order struct {
	Side       reminder.Side
	Platinum   int
	Quantity   int
	Rank       *int
	Visible    bool
	IngameName string
	Status     string // "ingame", "online", "offline"
}

// Reachable reports whether the order owner can be traded with right now.
func (o Order) Reachable() bool {
	return o.Visible && (o.Status == "ingame" || o.Status == "online")
}

// BestOrder is the most attractive reachable order for one side.
type BestOrder struct {
	Price      int
	Quantity   int
	IngameName string
	Rank       *int
}

// RankMatches reports whether an order fits the wanted rank. A nil rank accepts any order.
func RankMatches(o Order, rank *int) bool {
	if rank == nil {
		return true
	}
	return o.Rank != nil && *o.Rank == *rank
}

// Filter keeps reachable orders of one side at the wanted rank, best first:
// cheapest sell orders, most generous buy orders.
func Filter(orders []Order, side reminder.Side, rank *int) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if o.Side != side || !o.Reachable() || !RankMatches(o, rank) {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if side == reminder.SideBuy {
			return out[i].Platinum > out[j].Platinum
		}
		return out[i].Platinum < out[j].Platinum
	})
	return out
}

// SelectBest picks the best order for a side, or nil when there is none.
func SelectBest(orders []Order, side reminder.Side, rank *int) *BestOrder {
	filtered := Filter(orders, side, rank)
	if len(filtered) == 0 {
		return nil
	}
	o := filtered[0]
	return &BestOrder{Price: o.Platinum, Quantity: o.Quantity, IngameName: o.IngameName, Rank: o.Rank}
}

// Triggered reports whether a watched price crossed the target: watching sell
// orders fires at or below the target, watching buy orders at or above it.
func Triggered(side reminder.Side, price, target int) bool {
	switch side {
	case reminder.SideSell:
		return price <= target
	case reminder.SideBuy:
		return price >= target
	default:
		return false
	}
}

// WhisperCommand builds the in-game chat message for contacting the order owner.
func WhisperCommand(side reminder.Side, ingameName, itemName string, rank *int, price int) string {
	verb := "buy"
	if side == reminder.SideBuy {
		verb = "sell"
	}
	rankText := ""
	if rank != nil {
		rankText = fmt.Sprintf(" (rank %d)", *rank)
	}
	return fmt.Sprintf("/w %s Hi! I want to %s: \"%s%s\" for %d platinum. (warframe.market)", ingameName, verb, itemName, rankText, price)
}

type itemNames []Item

func (n itemNames) String(i int) string { return n[i].Name }
func (n itemNames) Len() int            { return len(n) }

// Match resolves a user query against the catalog. An exact name or slug
// match wins; otherwise up to limit fuzzy suggestions are returned.
func Match(items []Item, query string, limit int) (*Item, []Item) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}
	slug := strings.ReplaceAll(q, " ", "_")
	for i := range items {
		if strings.ToLower(items[i].Name) == q || items[i].Slug == slug {
			item := items[i]
			return &item, nil
		}
	}

	matches := fuzzy.FindFrom(q, itemNames(items))
	suggestions := make([]Item, 0, limit)
	for _, m := range matches {
		if len(suggestions) == limit {
			break
		}
		suggestions = append(suggestions, items[m.Index])
	}
	return nil, suggestions
}
