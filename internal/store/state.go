package store

import (
	"database/sql"

	"github.com/nvalden/discsync/internal/domain"
)

// GetState returns the stored sync state for an artist, or nil when the
// artist has never been checked.
func (db *DB) GetState(artistID int64) (*domain.SyncState, error) {
	query := `SELECT artist_id, name, last_checked, last_release_date FROM artist_state WHERE artist_id = ?`

	state := &domain.SyncState{}
	err := db.Get(state, query, artistID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// UpsertState records the latest check for an artist. Last write wins.
func (db *DB) UpsertState(state *domain.SyncState) error {
	query := `INSERT INTO artist_state (artist_id, name, last_checked, last_release_date)
		VALUES (:artist_id, :name, :last_checked, :last_release_date)
		ON CONFLICT(artist_id) DO UPDATE SET
			name = excluded.name,
			last_checked = excluded.last_checked,
			last_release_date = excluded.last_release_date`

	_, err := db.NamedExec(query, state)
	return err
}
