// internal/domain/reminder/reminder.go
package reminder

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind discriminates which monitor owns a reminder and which payload it carries.
type Kind string

const (
	KindCycle   Kind = "cycle"
	KindMarket  Kind = "market"
	KindFissure Kind = "fissure"
	KindCustom  Kind = "custom"
)

// rank orders kinds in listings.
func (k Kind) rank() int {
	switch k {
	case KindCycle:
		return 0
	case KindMarket:
		return 1
	case KindFissure:
		return 2
	case KindCustom:
		return 3
	default:
		return 4
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool { return k.rank() < 4 }

// Side is the order book a market reminder watches.
type Side string

const (
	// SideSell watches sell orders: the user wants to buy cheap.
	SideSell Side = "sell"
	// SideBuy watches buy orders: the user wants to sell high.
	SideBuy Side = "buy"
)

func (s Side) Valid() bool { return s == SideSell || s == SideBuy }

// Difficulty filters fissure matches.
type Difficulty string

const (
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
	DifficultyStorm  Difficulty = "storm"
	DifficultyAll    Difficulty = "all"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyNormal, DifficultyHard, DifficultyStorm, DifficultyAll:
		return true
	}
	return false
}

// ParseDifficulty accepts a difficulty name in any case. An empty string means all.
func ParseDifficulty(s string) (Difficulty, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DifficultyAll, nil
	}
	d := Difficulty(s)
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
	}
	return d, nil
}

// CycleTarget is the payload of a cycle reminder.
type CycleTarget struct {
	Region      string `json:"region"`
	TargetPhase string `json:"target_phase"`
	StartTS     int64  `json:"start_ts"`
	LeadMinutes int    `json:"lead_minutes"`
}

// MarketTarget is the payload of a market reminder.
type MarketTarget struct {
	Slug        string `json:"slug"`
	ItemName    string `json:"item_name"`
	Side        Side   `json:"side"`
	TargetPrice int    `json:"target_price"`
	Rank        *int   `json:"rank,omitempty"`
}

// FissureTarget is the payload of a fissure reminder.
type FissureTarget struct {
	MissionType string     `json:"mission_type"`
	Difficulty  Difficulty `json:"difficulty"`
}

// Reminder is a persisted one-shot user subscription. Exactly one payload
// matching Kind is set; custom reminders carry none.
type Reminder struct {
	ID          string            `json:"id"`
	Kind        Kind              `json:"kind"`
	UserID      int64             `json:"user_id"`
	ChannelID   int64             `json:"channel_id"`
	DisplayName string            `json:"display_name"`
	Enabled     bool              `json:"enabled"`
	TriggerTS   int64             `json:"trigger_ts,omitempty"`
	CreatedTS   int64             `json:"created_ts"`
	Cycle       *CycleTarget      `json:"cycle,omitempty"`
	Market      *MarketTarget     `json:"market,omitempty"`
	Fissure     *FissureTarget    `json:"fissure,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Metadata keys used for display.
const (
	MetaRegionLabel = "region_label"
	MetaPhaseLabel  = "phase_label"
)

// Validate checks that the reminder is a well-formed member of its kind.
func (r *Reminder) Validate() error {
	if r == nil {
		return ErrInvalidReminder
	}
	if r.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidReminder)
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, r.Kind)
	}

	payloads := 0
	for _, set := range []bool{r.Cycle != nil, r.Market != nil, r.Fissure != nil} {
		if set {
			payloads++
		}
	}

	switch r.Kind {
	case KindCycle:
		if r.Cycle == nil || payloads != 1 {
			return fmt.Errorf("%w: cycle reminder needs exactly a cycle payload", ErrInvalidReminder)
		}
		if r.Cycle.Region == "" || r.Cycle.TargetPhase == "" {
			return fmt.Errorf("%w: cycle reminder without region or phase", ErrInvalidReminder)
		}
		if r.TriggerTS <= 0 {
			return fmt.Errorf("%w: cycle reminder without trigger time", ErrInvalidReminder)
		}
	case KindMarket:
		if r.Market == nil || payloads != 1 {
			return fmt.Errorf("%w: market reminder needs exactly a market payload", ErrInvalidReminder)
		}
		if r.Market.Slug == "" || !r.Market.Side.Valid() {
			return fmt.Errorf("%w: market reminder without slug or with side %q", ErrInvalidReminder, r.Market.Side)
		}
		if r.Market.TargetPrice < 0 {
			return fmt.Errorf("%w: negative target price", ErrInvalidReminder)
		}
		if r.Market.Rank != nil && *r.Market.Rank < 0 {
			return fmt.Errorf("%w: negative rank", ErrInvalidReminder)
		}
	case KindFissure:
		if r.Fissure == nil || payloads != 1 {
			return fmt.Errorf("%w: fissure reminder needs exactly a fissure payload", ErrInvalidReminder)
		}
		if r.Fissure.MissionType == "" || !r.Fissure.Difficulty.Valid() {
			return fmt.Errorf("%w: fissure reminder without mission or with difficulty %q", ErrInvalidReminder, r.Fissure.Difficulty)
		}
	case KindCustom:
		if payloads != 0 {
			return fmt.Errorf("%w: custom reminder carries a payload", ErrInvalidReminder)
		}
		if r.TriggerTS <= 0 {
			return fmt.Errorf("%w: custom reminder without trigger time", ErrInvalidReminder)
		}
	}
	return nil
}

// Clone returns a deep copy, so callers never share payloads with a store.
func (r *Reminder) Clone() *Reminder {
	if r == nil {
		return nil
	}
	c := *r
	if r.Cycle != nil {
		cy := *r.Cycle
		c.Cycle = &cy
	}
	if r.Market != nil {
		m := *r.Market
		if r.Market.Rank != nil {
			rank := *r.Market.Rank
			m.Rank = &rank
		}
		c.Market = &m
	}
	if r.Fissure != nil {
		f := *r.Fissure
		c.Fissure = &f
	}
	if r.Metadata != nil {
		c.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// Due reports whether a time-based reminder should fire at now.
func (r *Reminder) Due(now int64) bool {
	return r.Enabled && r.TriggerTS > 0 && r.TriggerTS <= now
}

// SortForListing orders reminders by kind, then trigger time. Ties keep
// their relative order.
func SortForListing(items []*Reminder) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Kind.rank() != b.Kind.rank() {
			return a.Kind.rank() < b.Kind.rank()
		}
		return a.TriggerTS < b.TriggerTS
	})
}

// HasKind reports whether k is in kinds. An empty list matches every kind.
func HasKind(kinds []Kind, k Kind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}

// Custom errors
var (
	ErrInvalidReminder   = errors.New("invalid reminder")
	ErrUnknownKind       = errors.New("unknown reminder kind")
	ErrInvalidDifficulty = errors.New("invalid fissure difficulty")
	ErrDuplicateID       = errors.New("reminder with this id already exists")
	ErrReminderNotFound  = errors.New("reminder not found")
)
