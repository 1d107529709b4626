package store

import (
	"database/sql"
	"time"
)

// UpsertDirectoryEntry records a known user for later other-party resolution.
// Directory entries outlive contact deletion on purpose.
func (db *DB) UpsertDirectoryEntry(e *DirectoryEntry) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO directory (id, name, photo, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE directory.name END,
			photo = CASE WHEN excluded.photo != '' THEN excluded.photo ELSE directory.photo END,
			updated_at = excluded.updated_at`,
		e.ID, e.Name, e.Photo, now)
	return err
}

// GetDirectoryEntry returns a known user by id, or nil when absent.
func (db *DB) GetDirectoryEntry(id string) (*DirectoryEntry, error) {
	var e DirectoryEntry
	err := db.QueryRow(`SELECT id, name, photo FROM directory WHERE id = ?`, id).
		Scan(&e.ID, &e.Name, &e.Photo)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
