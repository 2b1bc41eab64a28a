// internal/infra/storage/file_reminder_repository.go
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"wf_reminder_bot/internal/domain/reminder"
)

// ErrUnreadableStore is returned by writes while the store file is not a JSON
// array. The file is left untouched until someone repairs it.
var ErrUnreadableStore = errors.New("reminder file is not a JSON array")

// FileReminderRepository keeps every reminder in one JSON array file. Each
// operation loads the whole file, mutates it in memory and writes it back.
type FileReminderRepository struct {
	path   string
	logger *logrus.Entry
	mu     sync.Mutex

	// unreadable is set while the file fails to decode, so the failure is
	// logged once instead of on every poll.
	unreadable bool
}

func NewFileReminderRepository(path string, logger *logrus.Entry) *FileReminderRepository {
	return &FileReminderRepository{path: path, logger: logger}
}

func (r *FileReminderRepository) Add(ctx context.Context, item *reminder.Reminder) error {
	if err := item.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	items, err := r.load()
	if err != nil {
		return err
	}
	for _, existing := range items {
		if existing.ID == item.ID {
			return fmt.Errorf("%w: %s", reminder.ErrDuplicateID, item.ID)
		}
	}
	items = append(items, item.Clone())
	return r.save(items)
}

func (r *FileReminderRepository) List(ctx context.Context, userID int64, onlyEnabled bool) ([]*reminder.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items, err := r.loadForRead()
	if err != nil {
		return nil, err
	}
	out := make([]*reminder.Reminder, 0)
	for _, it := range items {
		if it.UserID != userID {
			continue
		}
		if onlyEnabled && !it.Enabled {
			continue
		}
		out = append(out, it)
	}
	reminder.SortForListing(out)
	return out, nil
}

func (r *FileReminderRepository) ListEnabled(ctx context.Context, kinds ...reminder.Kind) ([]*reminder.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items, err := r.loadForRead()
	if err != nil {
		return nil, err
	}
	out := make([]*reminder.Reminder, 0)
	for _, it := range items {
		if it.Enabled && reminder.HasKind(kinds, it.Kind) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *FileReminderRepository) Disable(ctx context.Context, id string) (bool, error) {
	n, err := r.DisableMany(ctx, []string{id})
	return n == 1, err
}

func (r *FileReminderRepository) DisableMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	items, err := r.load()
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, it := range items {
		if _, ok := wanted[it.ID]; ok && it.Enabled {
			it.Enabled = false
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	if err := r.save(items); err != nil {
		return 0, err
	}
	return changed, nil
}

func (r *FileReminderRepository) PopDue(ctx context.Context, now int64, kinds ...reminder.Kind) ([]*reminder.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items, err := r.loadForRead()
	if err != nil {
		return nil, err
	}
	due := make([]*reminder.Reminder, 0)
	for _, it := range items {
		if !reminder.HasKind(kinds, it.Kind) || !it.Due(now) {
			continue
		}
		it.Enabled = false
		due = append(due, it.Clone())
	}
	if len(due) == 0 {
		return due, nil
	}
	if err := r.save(items); err != nil {
		return nil, err
	}
	return due, nil
}

func (r *FileReminderRepository) ClearDisabled(ctx context.Context, userID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items, err := r.load()
	if err != nil {
		return 0, err
	}
	kept := items[:0]
	removed := 0
	for _, it := range items {
		if it.UserID == userID && !it.Enabled {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	if removed == 0 {
		return 0, nil
	}
	if err := r.save(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// loadForRead treats an unreadable file as empty. PopDue uses it too and so
// never finds anything to write back.
func (r *FileReminderRepository) loadForRead() ([]*reminder.Reminder, error) {
	items, err := r.load()
	if errors.Is(err, ErrUnreadableStore) {
		return nil, nil
	}
	return items, err
}

// load reads the whole file. A missing file is an empty store; entries that
// cannot be decoded or fail validation are skipped.
func (r *FileReminderRepository) load() ([]*reminder.Reminder, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading reminder file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		if !r.unreadable {
			r.logger.WithError(err).WithField("path", r.path).Error("Reminder file is unreadable, serving it as empty and refusing writes")
			r.unreadable = true
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreadableStore, err)
	}
	if r.unreadable {
		r.logger.WithField("path", r.path).Info("Reminder file is readable again")
		r.unreadable = false
	}

	items := make([]*reminder.Reminder, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, entry := range raw {
		var it reminder.Reminder
		if err := json.Unmarshal(entry, &it); err != nil {
			r.logger.WithError(err).WithField("index", i).Warn("Skipping undecodable reminder record")
			continue
		}
		if err := it.Validate(); err != nil {
			r.logger.WithError(err).WithFields(logrus.Fields{"index": i, "reminder_id": it.ID}).Warn("Skipping invalid reminder record")
			continue
		}
		if _, dup := seen[it.ID]; dup {
			r.logger.WithField("reminder_id", it.ID).Warn("Skipping duplicate reminder record")
			continue
		}
		seen[it.ID] = struct{}{}
		items = append(items, &it)
	}
	return items, nil
}

// save writes the collection to a temp file next to the target and renames
// it into place, so a crash never leaves a half-written store behind.
func (r *FileReminderRepository) save(items []*reminder.Reminder) error {
	if items == nil {
		items = []*reminder.Reminder{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding reminders: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating reminder directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("error creating temp reminder file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("error writing temp reminder file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("error syncing temp reminder file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("error closing temp reminder file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		cleanup()
		return fmt.Errorf("error replacing reminder file: %w", err)
	}
	return nil
}
