// internal/infra/market/client.go
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"wf_reminder_bot/internal/domain/market"
	"wf_reminder_bot/internal/domain/reminder"
)

// SuggestionLimit caps the fuzzy suggestions returned for an unknown item.
const SuggestionLimit = 3

// StatusError is returned when the market API answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("market: %s returned %d", e.URL, e.StatusCode)
}

// Client talks to the marketplace API and owns the item catalog cache.
// It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	ttl     time.Duration
	now     func() time.Time

	mu       sync.Mutex
	items    []market.Item
	loadedAt time.Time
}

func NewClient(baseURL string, timeout, catalogTTL time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		ttl:     catalogTTL,
		now:     time.Now,
	}
}

type itemsResponse struct {
	Data []struct {
		Slug    string `json:"slug"`
		MaxRank *int   `json:"maxRank"`
		I18n    struct {
			En struct {
				Name string `json:"name"`
			} `json:"en"`
		} `json:"i18n"`
	} `json:"data"`
}

// Items returns the catalog, loading it on first use and again once the TTL
// has passed. A failed refresh keeps serving the previous catalog.
func (c *Client) Items(ctx context.Context) ([]market.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.items != nil && (c.ttl <= 0 || c.now().Sub(c.loadedAt) < c.ttl) {
		return c.items, nil
	}

	var resp itemsResponse
	if err := c.getJSON(ctx, "/v2/items", &resp); err != nil {
		if c.items != nil {
			return c.items, nil
		}
		return nil, err
	}
	items := make([]market.Item, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.Slug == "" || d.I18n.En.Name == "" {
			continue
		}
		items = append(items, market.Item{Slug: d.Slug, Name: d.I18n.En.Name, MaxRank: d.MaxRank})
	}
	c.items = items
	c.loadedAt = c.now()
	return c.items, nil
}

// Invalidate drops the cached catalog; the next lookup reloads it.
func (c *Client) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.loadedAt = time.Time{}
}

// FindItem resolves a user query to a catalog item. When there is no exact
// match it returns nil and up to SuggestionLimit close names.
func (c *Client) FindItem(ctx context.Context, query string) (*market.Item, []market.Item, error) {
	items, err := c.Items(ctx)
	if err != nil {
		return nil, nil, err
	}
	exact, suggestions := market.Match(items, query, SuggestionLimit)
	return exact, suggestions, nil
}

type ordersResponse struct {
	Data []struct {
		Type     string `json:"type"`
		Platinum int    `json:"platinum"`
		Quantity int    `json:"quantity"`
		Rank     *int   `json:"rank"`
		Visible  bool   `json:"visible"`
		User     struct {
			IngameName string `json:"ingameName"`
			Status     string `json:"status"`
		} `json:"user"`
	} `json:"data"`
}

// Orders returns the full order book of an item. A 404 means the slug left
// the marketplace, so the cached catalog is dropped with it.
func (c *Client) Orders(ctx context.Context, slug string) ([]market.Order, error) {
	var resp ordersResponse
	if err := c.getJSON(ctx, "/v2/orders/item/"+url.PathEscape(slug), &resp); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			c.Invalidate()
		}
		return nil, err
	}
	out := make([]market.Order, 0, len(resp.Data))
	for _, d := range resp.Data {
		side := reminder.Side(strings.ToLower(d.Type))
		if !side.Valid() {
			continue
		}
		out = append(out, market.Order{
			Side:       side,
			Platinum:   d.Platinum,
			Quantity:   d.Quantity,
			Rank:       d.Rank,
			Visible:    d.Visible,
			IngameName: d.User.IngameName,
			Status:     strings.ToLower(d.User.Status),
		})
	}
	return out, nil
}

// BestOrder returns the best reachable order for a side, or nil when the
// book has none.
func (c *Client) BestOrder(ctx context.Context, slug string, side reminder.Side, rank *int) (*market.BestOrder, error) {
	orders, err := c.Orders(ctx, slug)
	if err != nil {
		return nil, err
	}
	return market.SelectBest(orders, side, rank), nil
}

// TopOrders returns up to n reachable orders for a side, best first.
func (c *Client) TopOrders(ctx context.Context, slug string, side reminder.Side, rank *int, n int) ([]market.Order, error) {
	orders, err := c.Orders(ctx, slug)
	if err != nil {
		return nil, err
	}
	filtered := market.Filter(orders, side, rank)
	if n > 0 && len(filtered) > n {
		filtered = filtered[:n]
	}
	return filtered, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("market: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Platform", "pc")
	req.Header.Set("Language", "en")
	req.Header.Set("Crossplay", "true")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("market: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{URL: endpoint, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("market: decode %s: %w", path, err)
	}
	return nil
}
