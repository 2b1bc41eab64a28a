// internal/infra/warframestat/client.go
package warframestat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"wf_reminder_bot/internal/domain/fissure"
)

// StatusError is returned when the world-state API answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("warframestat: %s returned %d", e.URL, e.StatusCode)
}

// Client reads the public world-state feed. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// WorldState returns the object-valued sections of the PC world state keyed by
// name (cetusCycle, vallisCycle, cambionCycle...).
func (c *Client) WorldState(ctx context.Context) (map[string]map[string]any, error) {
	var raw map[string]json.RawMessage
	if err := c.getJSON(ctx, "/pc", &raw); err != nil {
		return nil, err
	}
	sections := make(map[string]map[string]any, len(raw))
	for name, body := range raw {
		var section map[string]any
		if err := json.Unmarshal(body, &section); err != nil || section == nil {
			continue // arrays and scalars are not cycle sections
		}
		sections[name] = section
	}
	return sections, nil
}

type fissureDTO struct {
	ID          string `json:"id"`
	Node        string `json:"node"`
	MissionType string `json:"missionType"`
	Tier        string `json:"tier"`
	Enemy       string `json:"enemy"`
	Expiry      string `json:"expiry"`
	Expired     bool   `json:"expired"`
	IsHard      bool   `json:"isHard"`
	IsStorm     bool   `json:"isStorm"`
}

// Fissures returns the current fissure snapshot in feed order.
func (c *Client) Fissures(ctx context.Context) ([]fissure.Fissure, error) {
	var dtos []fissureDTO
	if err := c.getJSON(ctx, "/pc/fissures", &dtos); err != nil {
		return nil, err
	}
	out := make([]fissure.Fissure, 0, len(dtos))
	for _, d := range dtos {
		f := fissure.Fissure{
			ID:          d.ID,
			Node:        d.Node,
			MissionType: d.MissionType,
			Tier:        d.Tier,
			Enemy:       d.Enemy,
			Expired:     d.Expired,
			IsHard:      d.IsHard,
			IsStorm:     d.IsStorm,
		}
		if d.Expiry != "" {
			if t, err := time.Parse(time.RFC3339, d.Expiry); err == nil {
				f.Expiry = t
			}
		}
		out = append(out, f)
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("warframestat: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("warframestat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("warframestat: decode %s: %w", path, err)
	}
	return nil
}
