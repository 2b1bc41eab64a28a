// internal/domain/fissure/fissure.go
package fissure

import (
	"sort"
	"strings"
	"time"

	"wf_reminder_bot/internal/domain/reminder"
)

// Fissure is one transient void fissure as reported by the world-state feed.
type Fissure struct {
	ID          string
	Node        string // e.g. "Uriel (Uranus)"
	MissionType string
	Tier        string
	Enemy       string
	Expiry      time.Time // zero when unknown
	Expired     bool
	IsHard      bool
	IsStorm     bool
}

// Difficulty classifies the fissure. Storm wins over hard.
func (f Fissure) Difficulty() reminder.Difficulty {
	switch {
	case f.IsStorm:
		return reminder.DifficultyStorm
	case f.IsHard:
		return reminder.DifficultyHard
	default:
		return reminder.DifficultyNormal
	}
}

// Active reports whether the fissure is still open at now.
func (f Fissure) Active(now time.Time) bool {
	if f.Expired {
		return false
	}
	return f.Expiry.IsZero() || f.Expiry.After(now)
}

// Location splits "Uriel (Uranus)" into node and planet. Nodes without a
// planet suffix are returned as they are.
func (f Fissure) Location() (node, planet string) {
	raw := strings.TrimSpace(f.Node)
	open := strings.LastIndex(raw, "(")
	if open <= 0 || !strings.HasSuffix(raw, ")") {
		return raw, ""
	}
	return strings.TrimSpace(raw[:open]), strings.TrimSpace(raw[open+1 : len(raw)-1])
}

// Accepts reports whether the fissure passes a difficulty filter.
func Accepts(filter reminder.Difficulty, f Fissure) bool {
	switch filter {
	case reminder.DifficultyNormal:
		return !f.IsHard && !f.IsStorm
	case reminder.DifficultyHard:
		return f.IsHard
	case reminder.DifficultyStorm:
		return f.IsStorm
	case reminder.DifficultyAll:
		return true
	default:
		return false
	}
}

// FirstMatch returns the first active fissure in snapshot order whose mission
// type equals missionType (case-insensitively) and that passes the filter.
func FirstMatch(snapshot []Fissure, missionType string, filter reminder.Difficulty, now time.Time) (Fissure, bool) {
	for _, f := range snapshot {
		if !strings.EqualFold(f.MissionType, missionType) {
			continue
		}
		if !Accepts(filter, f) {
			continue
		}
		if !f.Active(now) {
			continue
		}
		return f, true
	}
	return Fissure{}, false
}

var tierWeight = map[string]int{
	"Lith": 1, "Meso": 2, "Neo": 3, "Axi": 4, "Requiem": 5, "Omnia": 6,
}

// TierWeight orders relic tiers from Lith upwards; unknown tiers sort last.
func TierWeight(tier string) int {
	if w, ok := tierWeight[tier]; ok {
		return w
	}
	return 99
}

// Board is the active fissure listing grouped by difficulty.
type Board struct {
	Normal []Fissure
	Hard   []Fissure
	Storm  []Fissure
}

// Group builds a Board from a snapshot, dropping inactive fissures and
// ordering each group by relic tier.
func Group(snapshot []Fissure, now time.Time) Board {
	var b Board
	for _, f := range snapshot {
		if !f.Active(now) {
			continue
		}
		switch f.Difficulty() {
		case reminder.DifficultyStorm:
			b.Storm = append(b.Storm, f)
		case reminder.DifficultyHard:
			b.Hard = append(b.Hard, f)
		default:
			b.Normal = append(b.Normal, f)
		}
	}
	for _, group := range [][]Fissure{b.Normal, b.Hard, b.Storm} {
		sort.SliceStable(group, func(i, j int) bool {
			return TierWeight(group[i].Tier) < TierWeight(group[j].Tier)
		})
	}
	return b
}

// MissionTypes lists the mission types users can subscribe to.
var MissionTypes = []string{
	"Survival", "Defense", "Extermination", "Capture", "Excavation",
	"Interception", "Mobile Defense", "Spy", "Rescue", "Sabotage",
	"Disruption", "Skirmish", "Assault", "Orphix", "Volatile",
	"Void Cascade", "Void Flood", "Mirror Defense", "Alchemy", "Hijack",
}

// CanonicalMission returns the known spelling of a mission type, or the
// trimmed input when it is not in the list.
func CanonicalMission(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	for _, m := range MissionTypes {
		if strings.EqualFold(m, name) {
			return m
		}
	}
	return name
}
