package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/taskpilot/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// ReadAll loads the persisted task collection in its stored order.
// It returns nil (and no error) when no snapshot has ever been written.
func (s *SQLiteStore) ReadAll(ctx context.Context) ([]model.Task, error) {
	var snapshots int
	if err := s.db.GetContext(ctx, &snapshots,
		"SELECT COUNT(*) FROM snapshot_meta"); err != nil {
		return nil, fmt.Errorf("reading snapshot marker: %w", err)
	}
	if snapshots == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, title, description, status, priority,
			deadline, start_time, duration,
			created_at, updated_at, completed_at,
			created_by, calendar_event_id,
			tags, assignees, comments, reminder_ids,
			recurrence, time_tracking
		FROM tasks ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// WriteAll replaces the persisted collection in a single transaction.
func (s *SQLiteStore) WriteAll(ctx context.Context, tasks []model.Task) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks"); err != nil {
		return fmt.Errorf("clearing tasks: %w", err)
	}

	const query = `
		INSERT INTO tasks (
			id, position, title, description, status, priority,
			deadline, start_time, duration,
			created_at, updated_at, completed_at,
			created_by, calendar_event_id,
			tags, assignees, comments, reminder_ids,
			recurrence, time_tracking
		) VALUES (
			?, ?, ?, ?, ?, ?,
			?, ?, ?,
			?, ?, ?,
			?, ?,
			?, ?, ?, ?,
			?, ?
		)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i, t := range tasks {
		cols, err := encodeTaskColumns(t)
		if err != nil {
			return fmt.Errorf("encoding task %s: %w", t.ID, err)
		}

		_, err = stmt.ExecContext(ctx,
			t.ID, i, t.Title, t.Description, string(t.Status), string(t.Priority),
			utcPtr(t.Deadline), utcPtr(t.StartTime), t.Duration,
			t.CreatedAt.UTC(), t.UpdatedAt.UTC(), utcPtr(t.CompletedAt),
			t.CreatedBy, t.CalendarEventID,
			cols.tags, cols.assignees, cols.comments, cols.reminderIDs,
			cols.recurrence, cols.timeTracking,
		)
		if err != nil {
			return fmt.Errorf("inserting task %s: %w", t.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO snapshot_meta (id, task_count, written_at)
		VALUES (1, ?, ?)`, len(tasks), time.Now().UTC()); err != nil {
		return fmt.Errorf("writing snapshot marker: %w", err)
	}

	return tx.Commit()
}

// taskColumns holds the JSON-encoded nested fields of a task row.
type taskColumns struct {
	tags         string
	assignees    string
	comments     string
	reminderIDs  string
	recurrence   string
	timeTracking string
}

func encodeTaskColumns(t model.Task) (taskColumns, error) {
	var cols taskColumns
	var err error

	if cols.tags, err = jsonList(t.Tags); err != nil {
		return cols, fmt.Errorf("marshaling tags: %w", err)
	}
	if cols.assignees, err = jsonList(t.Assignees); err != nil {
		return cols, fmt.Errorf("marshaling assignees: %w", err)
	}
	if cols.comments, err = jsonList(t.Comments); err != nil {
		return cols, fmt.Errorf("marshaling comments: %w", err)
	}
	if cols.reminderIDs, err = jsonList(t.ReminderIDs); err != nil {
		return cols, fmt.Errorf("marshaling reminder_ids: %w", err)
	}
	if t.Recurrence != nil {
		b, err := json.Marshal(t.Recurrence)
		if err != nil {
			return cols, fmt.Errorf("marshaling recurrence: %w", err)
		}
		cols.recurrence = string(b)
	}
	if t.TimeTracking != nil {
		b, err := json.Marshal(t.TimeTracking)
		if err != nil {
			return cols, fmt.Errorf("marshaling time_tracking: %w", err)
		}
		cols.timeTracking = string(b)
	}

	return cols, nil
}

// jsonList encodes a slice, writing "[]" for nil so the column is never NULL.
func jsonList[T any](items []T) (string, error) {
	if items == nil {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// scanTask scans a task row from a sqlx.Rows result set.
func scanTask(rows *sqlx.Rows) (model.Task, error) {
	var (
		task                              model.Task
		status, priority                  string
		deadline, startTime, completedAt  *time.Time
		duration                          *int
		tags, assignees, comments, remIDs string
		recurrence, timeTracking          string
	)

	err := rows.Scan(
		&task.ID, &task.Title, &task.Description, &status, &priority,
		&deadline, &startTime, &duration,
		&task.CreatedAt, &task.UpdatedAt, &completedAt,
		&task.CreatedBy, &task.CalendarEventID,
		&tags, &assignees, &comments, &remIDs,
		&recurrence, &timeTracking,
	)
	if err != nil {
		return model.Task{}, fmt.Errorf("scanning task row: %w", err)
	}

	task.Status = model.Status(status)
	task.Priority = model.Priority(priority)
	task.Deadline = deadline
	task.StartTime = startTime
	task.Duration = duration
	task.CompletedAt = completedAt

	if err := decodeList(tags, &task.Tags); err != nil {
		return model.Task{}, fmt.Errorf("unmarshaling tags for task %s: %w", task.ID, err)
	}
	if err := decodeList(assignees, &task.Assignees); err != nil {
		return model.Task{}, fmt.Errorf("unmarshaling assignees for task %s: %w", task.ID, err)
	}
	if err := decodeList(comments, &task.Comments); err != nil {
		return model.Task{}, fmt.Errorf("unmarshaling comments for task %s: %w", task.ID, err)
	}
	if err := decodeList(remIDs, &task.ReminderIDs); err != nil {
		return model.Task{}, fmt.Errorf("unmarshaling reminder_ids for task %s: %w", task.ID, err)
	}
	if recurrence != "" {
		task.Recurrence = &model.Recurrence{}
		if err := json.Unmarshal([]byte(recurrence), task.Recurrence); err != nil {
			return model.Task{}, fmt.Errorf("unmarshaling recurrence for task %s: %w", task.ID, err)
		}
	}
	if timeTracking != "" {
		task.TimeTracking = &model.TimeTracking{}
		if err := json.Unmarshal([]byte(timeTracking), task.TimeTracking); err != nil {
			return model.Task{}, fmt.Errorf("unmarshaling time_tracking for task %s: %w", task.ID, err)
		}
	}

	return task, nil
}

// decodeList decodes a JSON array column, leaving dst nil for empty arrays.
func decodeList[T any](raw string, dst *[]T) error {
	if raw == "" || raw == "[]" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
