// internal/infra/database/postgres_reminder_repository.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq" // For pq.Array and driver registration
	"github.com/sirupsen/logrus"

	"wf_reminder_bot/internal/domain/reminder"
)

const schema = `
CREATE TABLE IF NOT EXISTS reminders (
    id           TEXT PRIMARY KEY,
    kind         TEXT NOT NULL,
    user_id      BIGINT NOT NULL,
    channel_id   BIGINT NOT NULL,
    display_name TEXT NOT NULL DEFAULT '',
    enabled      BOOLEAN NOT NULL DEFAULT TRUE,
    trigger_ts   BIGINT NOT NULL DEFAULT 0,
    payload      JSONB NOT NULL DEFAULT '{}'::jsonb,
    metadata     JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_ts   BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS reminders_due_idx ON reminders (kind, trigger_ts) WHERE enabled;
CREATE INDEX IF NOT EXISTS reminders_user_idx ON reminders (user_id);
`

const reminderColumns = `id, kind, user_id, channel_id, display_name, enabled, trigger_ts, payload, metadata, created_ts`

// payloadColumn is the JSONB shape of the kind-specific payload.
type payloadColumn struct {
	Cycle   *reminder.CycleTarget   `json:"cycle,omitempty"`
	Market  *reminder.MarketTarget  `json:"market,omitempty"`
	Fissure *reminder.FissureTarget `json:"fissure,omitempty"`
}

type PostgresReminderRepository struct {
	db     *sql.DB
	logger *logrus.Entry
}

func NewPostgresReminderRepository(db *sql.DB, logger *logrus.Entry) *PostgresReminderRepository {
	return &PostgresReminderRepository{db: db, logger: logger}
}

// EnsureSchema creates the reminders table and its indexes when missing.
func (r *PostgresReminderRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("error creating reminders schema: %w", err)
	}
	return nil
}

func (r *PostgresReminderRepository) Add(ctx context.Context, item *reminder.Reminder) error {
	if err := item.Validate(); err != nil {
		return err
	}
	payload, metadata, err := encodeColumns(item)
	if err != nil {
		return err
	}

	query := `INSERT INTO reminders (` + reminderColumns + `)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = r.db.ExecContext(ctx, query,
		item.ID, item.Kind, item.UserID, item.ChannelID, item.DisplayName,
		item.Enabled, item.TriggerTS, payload, metadata, item.CreatedTS)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			return fmt.Errorf("%w: %s", reminder.ErrDuplicateID, item.ID)
		}
		return fmt.Errorf("error creating reminder: %w", err)
	}
	return nil
}

func (r *PostgresReminderRepository) List(ctx context.Context, userID int64, onlyEnabled bool) ([]*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders
               WHERE user_id = $1 AND (enabled OR NOT $2)
               ORDER BY trigger_ts, created_ts, id`
	rows, err := r.db.QueryContext(ctx, query, userID, onlyEnabled)
	if err != nil {
		return nil, fmt.Errorf("error listing reminders: %w", err)
	}
	items, err := r.scanAll(rows)
	if err != nil {
		return nil, err
	}
	reminder.SortForListing(items)
	return items, nil
}

func (r *PostgresReminderRepository) ListEnabled(ctx context.Context, kinds ...reminder.Kind) ([]*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders
               WHERE enabled AND (cardinality($1::text[]) = 0 OR kind = ANY($1))
               ORDER BY created_ts, id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(kindStrings(kinds)))
	if err != nil {
		return nil, fmt.Errorf("error listing enabled reminders: %w", err)
	}
	return r.scanAll(rows)
}

func (r *PostgresReminderRepository) Disable(ctx context.Context, id string) (bool, error) {
	n, err := r.DisableMany(ctx, []string{id})
	return n == 1, err
}

// DisableMany flips enabled to false in one statement. Rows that were already
// disabled do not match, so each reminder is counted at most once.
func (r *PostgresReminderRepository) DisableMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `UPDATE reminders SET enabled = FALSE WHERE enabled AND id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("error disabling reminders: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading disabled count: %w", err)
	}
	return int(n), nil
}

// PopDue disables and returns due reminders in a single UPDATE. Concurrent
// callers block on the same rows and re-check enabled, so a row is returned once.
func (r *PostgresReminderRepository) PopDue(ctx context.Context, now int64, kinds ...reminder.Kind) ([]*reminder.Reminder, error) {
	query := `UPDATE reminders SET enabled = FALSE
               WHERE enabled AND trigger_ts > 0 AND trigger_ts <= $1
                 AND (cardinality($2::text[]) = 0 OR kind = ANY($2))
               RETURNING ` + reminderColumns
	rows, err := r.db.QueryContext(ctx, query, now, pq.Array(kindStrings(kinds)))
	if err != nil {
		return nil, fmt.Errorf("error popping due reminders: %w", err)
	}
	return r.scanAll(rows)
}

func (r *PostgresReminderRepository) ClearDisabled(ctx context.Context, userID int64) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE user_id = $1 AND NOT enabled`, userID)
	if err != nil {
		return 0, fmt.Errorf("error clearing reminder history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading cleared count: %w", err)
	}
	return int(n), nil
}

// scanAll drains rows, skipping records that do not decode into a valid reminder.
func (r *PostgresReminderRepository) scanAll(rows *sql.Rows) ([]*reminder.Reminder, error) {
	defer rows.Close()

	items := make([]*reminder.Reminder, 0)
	for rows.Next() {
		var (
			rec      reminderRow
			kind     string
			payload  []byte
			metadata []byte
		)
		err := rows.Scan(&rec.ID, &kind, &rec.UserID, &rec.ChannelID, &rec.DisplayName,
			&rec.Enabled, &rec.TriggerTS, &payload, &metadata, &rec.CreatedTS)
		if err != nil {
			return nil, fmt.Errorf("error scanning reminder row: %w", err)
		}
		rec.Kind = reminder.Kind(kind)
		item, err := decodeColumns(rec, payload, metadata)
		if err != nil {
			r.logger.WithError(err).WithField("reminder_id", rec.ID).Warn("Skipping invalid reminder row")
			continue
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminder rows: %w", err)
	}
	return items, nil
}

// reminderRow holds the scalar columns of a reminders row.
type reminderRow struct {
	ID          string
	Kind        reminder.Kind
	UserID      int64
	ChannelID   int64
	DisplayName string
	Enabled     bool
	TriggerTS   int64
	CreatedTS   int64
}

func encodeColumns(item *reminder.Reminder) (payload, metadata []byte, err error) {
	payload, err = json.Marshal(payloadColumn{Cycle: item.Cycle, Market: item.Market, Fissure: item.Fissure})
	if err != nil {
		return nil, nil, fmt.Errorf("error encoding reminder payload: %w", err)
	}
	meta := item.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	metadata, err = json.Marshal(meta)
	if err != nil {
		return nil, nil, fmt.Errorf("error encoding reminder metadata: %w", err)
	}
	return payload, metadata, nil
}

func decodeColumns(rec reminderRow, payload, metadata []byte) (*reminder.Reminder, error) {
	item := &reminder.Reminder{
		ID:          rec.ID,
		Kind:        rec.Kind,
		UserID:      rec.UserID,
		ChannelID:   rec.ChannelID,
		DisplayName: rec.DisplayName,
		Enabled:     rec.Enabled,
		TriggerTS:   rec.TriggerTS,
		CreatedTS:   rec.CreatedTS,
	}
	if len(payload) > 0 {
		var p payloadColumn
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("error decoding reminder payload: %w", err)
		}
		item.Cycle, item.Market, item.Fissure = p.Cycle, p.Market, p.Fissure
	}
	if len(metadata) > 0 {
		var meta map[string]string
		if err := json.Unmarshal(metadata, &meta); err != nil {
			return nil, fmt.Errorf("error decoding reminder metadata: %w", err)
		}
		if len(meta) > 0 {
			item.Metadata = meta
		}
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

func kindStrings(kinds []reminder.Kind) []string {
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, strings.ToLower(string(k)))
	}
	return out
}
