// internal/domain/reminder/repository.go
package reminder

import "context"

// Repository is the single source of truth for reminder state. Every method
// is atomic with respect to the others.
type Repository interface {
	// Add persists a new, valid reminder.
	Add(ctx context.Context, r *Reminder) error
	// List returns a user's reminders in listing order.
	List(ctx context.Context, userID int64, onlyEnabled bool) ([]*Reminder, error)
	// ListEnabled returns every enabled reminder of the given kinds in storage order.
	ListEnabled(ctx context.Context, kinds ...Kind) ([]*Reminder, error)
	// Disable turns an enabled reminder off. It reports false when the id is
	// unknown or the reminder was already disabled.
	Disable(ctx context.Context, id string) (bool, error)
	// DisableMany disables several reminders in one write and returns how
	// many actually changed.
	DisableMany(ctx context.Context, ids []string) (int, error)
	// PopDue disables and returns every enabled reminder of the given kinds
	// whose trigger time is at or before now, in one critical section.
	PopDue(ctx context.Context, now int64, kinds ...Kind) ([]*Reminder, error)
	// ClearDisabled removes a user's fired and cancelled reminders.
	ClearDisabled(ctx context.Context, userID int64) (int, error)
}
