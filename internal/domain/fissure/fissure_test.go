package fissure

import (
	"testing"
	"time"

	"wf_reminder_bot/internal/domain/reminder"
)

func TestFirstMatchDifficulty(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	later := now.Add(30 * time.Minute)

	normal := Fissure{ID: "n", MissionType: "Survival", Expiry: later}
	hard := Fissure{ID: "h", MissionType: "Survival", Expiry: later, IsHard: true}
	storm := Fissure{ID: "s", MissionType: "Survival", Expiry: later, IsStorm: true}

	cases := []struct {
		name     string
		snapshot []Fissure
		filter   reminder.Difficulty
		wantID   string
	}{
		{"hard filter skips normal", []Fissure{normal}, reminder.DifficultyHard, ""},
		{"hard filter takes hard", []Fissure{normal, hard}, reminder.DifficultyHard, "h"},
		{"normal filter skips hard and storm", []Fissure{hard, storm}, reminder.DifficultyNormal, ""},
		{"normal filter takes normal", []Fissure{storm, normal}, reminder.DifficultyNormal, "n"},
		{"storm filter", []Fissure{normal, hard, storm}, reminder.DifficultyStorm, "s"},
		{"all takes first", []Fissure{hard, normal}, reminder.DifficultyAll, "h"},
		{"unknown filter never matches", []Fissure{normal}, "steel", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FirstMatch(tc.snapshot, "survival", tc.filter, now)
			if tc.wantID == "" {
				if ok {
					t.Fatalf("expected no match, got %+v", got)
				}
				return
			}
			if !ok || got.ID != tc.wantID {
				t.Fatalf("expected %s, got %+v (ok=%v)", tc.wantID, got, ok)
			}
		})
	}
}

func TestFirstMatchSkipsInactiveAndOtherMissions(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	snapshot := []Fissure{
		{ID: "expired-flag", MissionType: "Survival", Expired: true, Expiry: now.Add(time.Hour)},
		{ID: "expired-time", MissionType: "Survival", Expiry: now.Add(-time.Second)},
		{ID: "defense", MissionType: "Defense", Expiry: now.Add(time.Hour)},
		{ID: "no-expiry", MissionType: "SURVIVAL"},
	}
	got, ok := FirstMatch(snapshot, "Survival", reminder.DifficultyAll, now)
	if !ok || got.ID != "no-expiry" {
		t.Fatalf("expected no-expiry, got %+v ok=%v", got, ok)
	}
}

func TestLocation(t *testing.T) {
	node, planet := Fissure{Node: "Uriel (Uranus)"}.Location()
	if node != "Uriel" || planet != "Uranus" {
		t.Fatalf("unexpected split %q %q", node, planet)
	}
	node, planet = Fissure{Node: "Kuva Fortress"}.Location()
	if node != "Kuva Fortress" || planet != "" {
		t.Fatalf("unexpected split %q %q", node, planet)
	}
}

func TestGroupOrdersByTier(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := Group([]Fissure{
		{ID: "axi", Tier: "Axi"},
		{ID: "lith", Tier: "Lith"},
		{ID: "storm", Tier: "Neo", IsStorm: true, IsHard: true},
		{ID: "hard", Tier: "Meso", IsHard: true},
		{ID: "gone", Tier: "Lith", Expired: true},
	}, now)

	if len(b.Normal) != 2 || b.Normal[0].ID != "lith" || b.Normal[1].ID != "axi" {
		t.Fatalf("unexpected normal group %+v", b.Normal)
	}
	if len(b.Hard) != 1 || len(b.Storm) != 1 || b.Storm[0].ID != "storm" {
		t.Fatalf("unexpected hard/storm groups %+v %+v", b.Hard, b.Storm)
	}
}

func TestCanonicalMission(t *testing.T) {
	if got := CanonicalMission("  mobile   defense "); got != "Mobile Defense" {
		t.Fatalf("unexpected %q", got)
	}
	if got := CanonicalMission("Netracells"); got != "Netracells" {
		t.Fatalf("unexpected %q", got)
	}
}
