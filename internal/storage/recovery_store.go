package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecoverySnapshot is an autosaved body of a draft that had unsaved changes.
type RecoverySnapshot struct {
	ID        string    `json:"id"`
	PostKey   string    `json:"postKey"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// RecoveryStore keeps the most recent autosaved bodies per post in SQLite.
type RecoveryStore struct {
	db   *DB
	keep int
}

// NewRecoveryStore creates a store that keeps at most keep snapshots per post.
func NewRecoveryStore(db *DB, keep int) *RecoveryStore {
	if keep <= 0 {
		keep = 20
	}
	return &RecoveryStore{db: db, keep: keep}
}

// Push records body for postKey and prunes old snapshots.
func (s *RecoveryStore) Push(postKey, body string) (*RecoverySnapshot, error) {
	snap := &RecoverySnapshot{
		ID:        uuid.New().String(),
		PostKey:   postKey,
		Body:      body,
		CreatedAt: time.Now(),
	}
	_, err := s.db.Conn().Exec(
		`INSERT INTO recovery_snapshots (id, post_key, body, created_at) VALUES (?, ?, ?, ?)`,
		snap.ID, snap.PostKey, snap.Body, snap.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert recovery snapshot: %w", err)
	}
	if err := s.prune(postKey); err != nil {
		return nil, fmt.Errorf("prune recovery snapshots: %w", err)
	}
	return snap, nil
}

// Latest returns the newest snapshot for postKey, or nil if there is none.
func (s *RecoveryStore) Latest(postKey string) (*RecoverySnapshot, error) {
	snap := &RecoverySnapshot{}
	err := s.db.Conn().QueryRow(
		`SELECT id, post_key, body, created_at FROM recovery_snapshots
		 WHERE post_key = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, postKey,
	).Scan(&snap.ID, &snap.PostKey, &snap.Body, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest recovery snapshot: %w", err)
	}
	return snap, nil
}

// List returns the snapshots for postKey, newest first.
func (s *RecoveryStore) List(postKey string) ([]RecoverySnapshot, error) {
	rows, err := s.db.Conn().Query(
		`SELECT id, post_key, body, created_at FROM recovery_snapshots
		 WHERE post_key = ? ORDER BY created_at DESC, rowid DESC`, postKey,
	)
	if err != nil {
		return nil, fmt.Errorf("list recovery snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []RecoverySnapshot
	for rows.Next() {
		var snap RecoverySnapshot
		if err := rows.Scan(&snap.ID, &snap.PostKey, &snap.Body, &snap.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recovery snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Clear removes every snapshot for postKey.
func (s *RecoveryStore) Clear(postKey string) error {
	_, err := s.db.Conn().Exec(`DELETE FROM recovery_snapshots WHERE post_key = ?`, postKey)
	return err
}

// prune removes the oldest snapshots beyond the keep limit.
func (s *RecoveryStore) prune(postKey string) error {
	var count int
	if err := s.db.Conn().QueryRow(`SELECT COUNT(*) FROM recovery_snapshots WHERE post_key = ?`, postKey).Scan(&count); err != nil {
		return err
	}
	if count <= s.keep {
		return nil
	}

	// Collect ids first; the single connection can't serve a write while rows are open
	rows, err := s.db.Conn().Query(
		`SELECT id FROM recovery_snapshots WHERE post_key = ?
		 ORDER BY created_at ASC, rowid ASC LIMIT ?`, postKey, count-s.keep,
	)
	if err != nil {
		return err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()

	for _, id := range ids {
		if _, err := s.db.Conn().Exec(`DELETE FROM recovery_snapshots WHERE id = ?`, id); err != nil {
			return err
		}
	}
	return nil
}
