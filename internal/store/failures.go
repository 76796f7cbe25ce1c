package store

import (
	"time"

	"github.com/nvalden/discsync/internal/constants"
	"github.com/nvalden/discsync/internal/domain"
)

// AppendFailure inserts a failure entry and trims the log back to the newest
// MaxFailureEntries rows in the same transaction.
func (db *DB) AppendFailure(entry *domain.FailureLogEntry) error {
	db.failMu.Lock()
	defer db.failMu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	insert := `INSERT INTO failure_log (timestamp, artist, artist_id, release_id, error, category)
		VALUES (:timestamp, :artist, :artist_id, :release_id, :error, :category)`
	if _, err := tx.NamedExec(insert, entry); err != nil {
		return err
	}

	trim := `DELETE FROM failure_log WHERE id NOT IN (
		SELECT id FROM failure_log ORDER BY id DESC LIMIT ?)`
	if _, err := tx.Exec(trim, constants.MaxFailureEntries); err != nil {
		return err
	}

	return tx.Commit()
}

// ListFailures returns the newest entries first. A non-positive or oversized
// limit falls back to the retention cap.
func (db *DB) ListFailures(limit int) ([]domain.FailureLogEntry, error) {
	if limit <= 0 || limit > constants.MaxFailureEntries {
		limit = constants.MaxFailureEntries
	}

	query := `SELECT id, timestamp, artist, artist_id, release_id, error, category
		FROM failure_log ORDER BY id DESC LIMIT ?`

	var entries []domain.FailureLogEntry
	err := db.Select(&entries, query, limit)
	return entries, err
}
