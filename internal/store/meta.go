package store

import (
	"database/sql"
	"time"
)

const lastFullSyncKey = "last_full_sync"

// LastFullSync returns when the most recent whole-library run finished, or
// the zero time when none has.
func (db *DB) LastFullSync() (time.Time, error) {
	value, err := db.getMeta(lastFullSyncKey)
	if err != nil || value == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

func (db *DB) SetLastFullSync(completedAt time.Time) error {
	return db.setMeta(lastFullSyncKey, completedAt.UTC().Format(time.RFC3339))
}

func (db *DB) getMeta(key string) (string, error) {
	var value string
	err := db.Get(&value, "SELECT value FROM sync_meta WHERE key = ?", key)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (db *DB) setMeta(key, value string) error {
	query := `INSERT INTO sync_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	_, err := db.Exec(query, key, value, time.Now())
	return err
}
