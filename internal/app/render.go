package app

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"wf_reminder_bot/internal/domain/cycle"
	"wf_reminder_bot/internal/domain/fissure"
	"wf_reminder_bot/internal/domain/market"
	"wf_reminder_bot/internal/domain/reminder"
)

// Renderer formats HTML chat messages. Times are shown in loc.
type Renderer struct {
	loc *time.Location
	now func() time.Time
}

func NewRenderer(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{loc: loc, now: time.Now}
}

func mention(userID int64) string {
	return fmt.Sprintf(`<a href="tg://user?id=%d">Tenno</a>`, userID)
}

// At renders an epoch timestamp as "15:04 (in 5 minutes)".
func (r *Renderer) At(ts int64) string {
	t := time.Unix(ts, 0).In(r.loc)
	return fmt.Sprintf("%s (%s)", t.Format("15:04"), humanize.RelTime(t, r.now(), "ago", "from now"))
}

func (r *Renderer) atTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return r.At(t.Unix())
}

// ReminderDue is the message for a fired cycle or custom reminder.
func (r *Renderer) ReminderDue(rem *reminder.Reminder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⏰ %s, reminder: <b>%s</b>", mention(rem.UserID), html.EscapeString(rem.DisplayName))
	if rem.Cycle != nil {
		phase := rem.Metadata[reminder.MetaPhaseLabel]
		if phase == "" {
			phase = rem.Cycle.TargetPhase
		}
		fmt.Fprintf(&b, "\n%s starts at %s", html.EscapeString(phase), r.At(rem.Cycle.StartTS))
	}
	return b.String()
}

// FissureFound is the message for a fissure reminder that matched.
func (r *Renderer) FissureFound(rem *reminder.Reminder, f fissure.Fissure) string {
	node, planet := f.Location()
	where := node
	if planet != "" {
		where = fmt.Sprintf("%s, %s", node, planet)
	}
	return fmt.Sprintf(
		"🌀 %s, fissure found: <b>%s</b>\n%s %s (%s) at %s\nEnemy: %s\nCloses at %s",
		mention(rem.UserID),
		html.EscapeString(rem.DisplayName),
		html.EscapeString(f.Tier),
		html.EscapeString(f.MissionType),
		f.Difficulty(),
		html.EscapeString(where),
		html.EscapeString(f.Enemy),
		r.atTime(f.Expiry),
	)
}

// PriceReached is the message for a market reminder whose target was met.
func (r *Renderer) PriceReached(rem *reminder.Reminder, best *market.BestOrder) string {
	m := rem.Market
	side := "seller"
	if m.Side == reminder.SideBuy {
		side = "buyer"
	}
	rank := m.Rank
	if rank == nil {
		rank = best.Rank
	}
	whisper := market.WhisperCommand(m.Side, best.IngameName, m.ItemName, rank, best.Price)
	return fmt.Sprintf(
		"💰 %s, price alert: <b>%s</b>\nBest %s: <b>%d</b> platinum (target %d) from %s\n<code>%s</code>",
		mention(rem.UserID),
		html.EscapeString(rem.DisplayName),
		side, best.Price, m.TargetPrice,
		html.EscapeString(best.IngameName),
		html.EscapeString(whisper),
	)
}

// Cycles renders the /cycles overview.
func (r *Renderer) Cycles(statuses []cycle.Status) string {
	if len(statuses) == 0 {
		return "No cycle data available right now."
	}
	var b strings.Builder
	b.WriteString("<b>World cycles</b>")
	for _, st := range statuses {
		next := st.PhaseKey
		if i := indexOfPhase(st.Pattern, st.PhaseKey); i >= 0 && len(st.Pattern) > 0 {
			next = st.Pattern[(i+1)%len(st.Pattern)].Label
		}
		fmt.Fprintf(&b, "\n%s: <b>%s</b>, %s at %s",
			html.EscapeString(st.RegionLabel),
			html.EscapeString(st.PhaseLabel()),
			html.EscapeString(next),
			r.At(st.NextChangeTS))
	}
	return b.String()
}

func indexOfPhase(p cycle.Pattern, key string) int {
	for i, ph := range p {
		if ph.Key == key {
			return i
		}
	}
	return -1
}

// Fissures renders the /fissures board.
func (r *Renderer) Fissures(board fissure.Board) string {
	var b strings.Builder
	groups := []struct {
		title string
		items []fissure.Fissure
	}{
		{"Normal", board.Normal},
		{"Steel Path", board.Hard},
		{"Void Storms", board.Storm},
	}
	for _, g := range groups {
		if len(g.items) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "<b>%s</b>", g.title)
		for _, f := range g.items {
			fmt.Fprintf(&b, "\n%s %s, %s (%s)",
				html.EscapeString(f.Tier),
				html.EscapeString(f.MissionType),
				html.EscapeString(f.Node),
				r.atTime(f.Expiry))
		}
	}
	if b.Len() == 0 {
		return "No active fissures."
	}
	return b.String()
}

// Quote renders a /market lookup.
func (r *Renderer) Quote(q *Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>", html.EscapeString(q.Item.Name))
	if q.Item.MaxRank != nil {
		fmt.Fprintf(&b, " (max rank %d)", *q.Item.MaxRank)
	}
	writeOrders := func(title string, side reminder.Side, orders []market.Order) {
		fmt.Fprintf(&b, "\n\n%s:", title)
		if len(orders) == 0 {
			b.WriteString(" none online")
			return
		}
		for _, o := range orders {
			fmt.Fprintf(&b, "\n<b>%d</b> pl x%d, %s", o.Platinum, o.Quantity, html.EscapeString(o.IngameName))
			if o.Rank != nil {
				fmt.Fprintf(&b, ", rank %d", *o.Rank)
			}
			fmt.Fprintf(&b, "\n<code>%s</code>", html.EscapeString(market.WhisperCommand(side, o.IngameName, q.Item.Name, o.Rank, o.Platinum)))
		}
	}
	writeOrders("Selling", reminder.SideSell, q.Sell)
	writeOrders("Buying", reminder.SideBuy, q.Buy)
	return b.String()
}

// ReminderList renders /reminders with 1-based indexes usable by /cancel.
func (r *Renderer) ReminderList(items []*reminder.Reminder) string {
	if len(items) == 0 {
		return "You have no pending reminders."
	}
	var b strings.Builder
	b.WriteString("<b>Your reminders</b>")
	for i, it := range items {
		fmt.Fprintf(&b, "\n%d. [%s] %s", i+1, it.Kind, html.EscapeString(it.DisplayName))
		switch {
		case it.Market != nil:
			verb := "at most"
			if it.Market.Side == reminder.SideBuy {
				verb = "at least"
			}
			fmt.Fprintf(&b, ", %s order %s %d pl", it.Market.Side, verb, it.Market.TargetPrice)
		case it.TriggerTS > 0:
			fmt.Fprintf(&b, ", at %s", r.At(it.TriggerTS))
		}
		fmt.Fprintf(&b, " <code>%s</code>", shortID(it.ID))
	}
	return b.String()
}

// ReminderCreated confirms a new reminder.
func (r *Renderer) ReminderCreated(rem *reminder.Reminder) string {
	text := fmt.Sprintf("✅ Reminder set: <b>%s</b>", html.EscapeString(rem.DisplayName))
	if rem.TriggerTS > 0 {
		text += fmt.Sprintf("\nI will ping you at %s", r.At(rem.TriggerTS))
	}
	return text + fmt.Sprintf("\nId: <code>%s</code>", shortID(rem.ID))
}

func shortID(id string) string {
	if len(id) > 10 {
		return id[len(id)-10:]
	}
	return id
}
