package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id                TEXT PRIMARY KEY,
	position          INTEGER NOT NULL,
	title             TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL DEFAULT 'todo'
		CHECK(status IN ('todo', 'in-progress', 'completed')),
	priority          TEXT NOT NULL DEFAULT 'medium'
		CHECK(priority IN ('low', 'medium', 'high')),
	deadline          DATETIME,
	start_time        DATETIME,
	duration          INTEGER,
	created_at        DATETIME NOT NULL,
	updated_at        DATETIME NOT NULL,
	completed_at      DATETIME,
	created_by        TEXT NOT NULL DEFAULT '',
	calendar_event_id TEXT NOT NULL DEFAULT '',
	tags              TEXT NOT NULL DEFAULT '[]',
	assignees         TEXT NOT NULL DEFAULT '[]',
	comments          TEXT NOT NULL DEFAULT '[]',
	reminder_ids      TEXT NOT NULL DEFAULT '[]',
	recurrence        TEXT NOT NULL DEFAULT '',
	time_tracking     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_tasks_position ON tasks(position);
CREATE INDEX IF NOT EXISTS idx_tasks_deadline ON tasks(deadline);

CREATE TABLE IF NOT EXISTS snapshot_meta (
	id         INTEGER PRIMARY KEY CHECK(id = 1),
	task_count INTEGER NOT NULL,
	written_at DATETIME NOT NULL
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS reminders (
	id         TEXT PRIMARY KEY,
	task_id    TEXT NOT NULL,
	task_title TEXT NOT NULL DEFAULT '',
	kind       TEXT NOT NULL CHECK(kind IN ('lead', 'deadline')),
	fire_at    DATETIME NOT NULL,
	fired      INTEGER NOT NULL DEFAULT 0 CHECK(fired IN (0, 1)),
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(fired, fire_at);
CREATE INDEX IF NOT EXISTS idx_reminders_task_id ON reminders(task_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
	{
		version: 3,
		sql: `
ALTER TABLE reminders ADD COLUMN due_at DATETIME;

UPDATE reminders SET due_at = fire_at WHERE kind = 'deadline';

INSERT INTO schema_version (version) VALUES (3);
`,
	},
}
