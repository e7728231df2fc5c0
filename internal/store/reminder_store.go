package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateReminder inserts a new reminder. Generates a UUID if ID is empty.
func (s *SQLiteStore) CreateReminder(ctx context.Context, r Reminder) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (id, task_id, task_title, kind, fire_at, due_at, fired, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TaskID, r.TaskTitle, r.Kind, r.FireAt.UTC(), utcPtr(r.DueAt),
		boolToInt(r.Fired), r.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating reminder: %w", err)
	}
	return nil
}

// DeleteReminders removes the reminders with the given IDs. Unknown IDs are ignored.
func (s *SQLiteStore) DeleteReminders(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM reminders WHERE id IN ("+strings.Join(placeholders, ", ")+")",
		args...)
	if err != nil {
		return fmt.Errorf("deleting reminders: %w", err)
	}
	return nil
}

// DueReminders returns unfired reminders whose fire time is at or before now,
// oldest first.
func (s *SQLiteStore) DueReminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, task_id, task_title, kind, fire_at, due_at, fired, created_at
		FROM reminders
		WHERE fired = 0 AND fire_at <= ?
		ORDER BY fire_at`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("querying due reminders: %w", err)
	}
	defer rows.Close()

	var reminders []Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// MarkReminderFired flags a reminder as delivered.
func (s *SQLiteStore) MarkReminderFired(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE reminders SET fired = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("marking reminder %s fired: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("reminder %s not found", id)
	}
	return nil
}

// GetRemindersForTask lists every reminder scheduled for a task.
func (s *SQLiteStore) GetRemindersForTask(
	ctx context.Context,
	taskID string,
) ([]Reminder, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, task_id, task_title, kind, fire_at, due_at, fired, created_at
		FROM reminders WHERE task_id = ? ORDER BY fire_at`, taskID)
	if err != nil {
		return nil, fmt.Errorf("querying reminders for task %s: %w", taskID, err)
	}
	defer rows.Close()

	var reminders []Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// scanReminder scans a reminder row from sqlx.Rows.
func scanReminder(rows interface{ Scan(dest ...interface{}) error }) (Reminder, error) {
	var (
		r        Reminder
		firedInt int
	)

	err := rows.Scan(
		&r.ID, &r.TaskID, &r.TaskTitle, &r.Kind,
		&r.FireAt, &r.DueAt, &firedInt, &r.CreatedAt,
	)
	if err != nil {
		return Reminder{}, fmt.Errorf("scanning reminder row: %w", err)
	}

	r.Fired = firedInt != 0
	return r, nil
}
