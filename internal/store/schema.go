package store

const Schema = `
CREATE TABLE IF NOT EXISTS artist_state (
	artist_id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	last_checked DATETIME NOT NULL,
	last_release_date TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sync_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS failure_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	artist TEXT NOT NULL,
	artist_id INTEGER DEFAULT 0,
	release_id INTEGER DEFAULT 0,
	error TEXT NOT NULL,
	category TEXT NOT NULL
);
`
