package warframestat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWorldStateSections(t *testing.T) {
	srv := newServer(t, map[string]string{
		"/pc": `{
			"timestamp": "2024-01-01T00:00:00.000Z",
			"alerts": [],
			"cetusCycle": {"isDay": true, "expiry": "2024-01-01T01:00:00.000Z"},
			"cambionCycle": {"state": "vome", "active": "vome", "expiry": "2024-01-01T00:30:00.000Z"}
		}`,
	})
	c := NewClient(srv.URL+"/", time.Second)

	sections, err := c.WorldState(context.Background())
	if err != nil {
		t.Fatalf("WorldState: %v", err)
	}
	if len(sections) != 2 {
		t.Fatalf("expected 2 object sections, got %d: %v", len(sections), sections)
	}
	if sections["cetusCycle"]["isDay"] != true {
		t.Fatalf("unexpected cetus section %v", sections["cetusCycle"])
	}
	if sections["cambionCycle"]["state"] != "vome" {
		t.Fatalf("unexpected cambion section %v", sections["cambionCycle"])
	}
}

func TestFissures(t *testing.T) {
	srv := newServer(t, map[string]string{
		"/pc/fissures": `[
			{"id": "a", "node": "Uriel (Uranus)", "missionType": "Survival", "tier": "Neo", "enemy": "Grineer",
			 "expiry": "2024-01-01T01:00:00.000Z", "expired": false, "isHard": true, "isStorm": false},
			{"id": "b", "node": "Mot (Void)", "missionType": "Defense", "tier": "Axi", "expiry": "garbage", "expired": true}
		]`,
	})
	c := NewClient(srv.URL, time.Second)

	got, err := c.Fissures(context.Background())
	if err != nil {
		t.Fatalf("Fissures: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 fissures, got %d", len(got))
	}
	want := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	if got[0].ID != "a" || !got[0].IsHard || !got[0].Expiry.Equal(want) {
		t.Fatalf("unexpected first fissure %+v", got[0])
	}
	if !got[1].Expired || !got[1].Expiry.IsZero() {
		t.Fatalf("unparseable expiry should stay zero, got %+v", got[1])
	}
}

func TestNonSuccessStatus(t *testing.T) {
	srv := newServer(t, map[string]string{})
	c := NewClient(srv.URL, time.Second)

	_, err := c.Fissures(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("expected a 404 StatusError, got %v", err)
	}
}

func TestMalformedBody(t *testing.T) {
	srv := newServer(t, map[string]string{"/pc": `[1, 2`})
	c := NewClient(srv.URL, time.Second)

	if _, err := c.WorldState(context.Background()); err == nil {
		t.Fatalf("expected a decode error")
	}
}
