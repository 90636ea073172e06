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

CREATE TABLE IF NOT EXISTS complaints (
	id              INTEGER PRIMARY KEY,
	title           TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT '',
	employee_name   TEXT NOT NULL DEFAULT '',
	department_name TEXT NOT NULL DEFAULT '',
	manager_remarks TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL,
	resolved_at     DATETIME,
	fetched_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_complaints_created_at ON complaints(created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
ALTER TABLE complaints ADD COLUMN status_key TEXT NOT NULL DEFAULT '';

UPDATE complaints SET status_key = LOWER(REPLACE(status, ' ', ''));

CREATE INDEX IF NOT EXISTS idx_complaints_status_key ON complaints(status_key);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
