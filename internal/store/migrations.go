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

CREATE TABLE IF NOT EXISTS boards (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS lists (
	id       TEXT PRIMARY KEY,
	board_id TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
	title    TEXT NOT NULL,
	position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	list_id     TEXT NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
	content     TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	due_date    TEXT,
	priority    TEXT NOT NULL DEFAULT 'low',
	position    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lists_board_id ON lists(board_id, position);
CREATE INDEX IF NOT EXISTS idx_tasks_list_id ON tasks(list_id, position);

CREATE TABLE IF NOT EXISTS snapshots (
	name             TEXT PRIMARY KEY,
	current_board_id TEXT NOT NULL DEFAULT '',
	saved_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS preferences (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
