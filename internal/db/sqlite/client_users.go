package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// UpsertUser lazily creates the user record. An existing row keeps its
// warning count; only the display username is refreshed.
func (s *sqliteClient) UpsertUser(ctx context.Context, userID int64, username string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO users (id, username) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET username = excluded.username
	`
	if _, err := s.db.ExecContext(ctx, query, userID, username); err != nil {
		return fmt.Errorf("upsert user %d: %w", userID, err)
	}
	return nil
}

// AddWarning increments the user's warning counter and returns the new
// count in one statement, so concurrent violations never lose an update.
func (s *sqliteClient) AddWarning(ctx context.Context, userID int64) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO users (id, warnings) VALUES (?, 1)
		ON CONFLICT(id) DO UPDATE SET warnings = warnings + 1
		RETURNING warnings
	`
	var warnings int
	if err := s.db.GetContext(ctx, &warnings, query, userID); err != nil {
		return 0, fmt.Errorf("add warning for user %d: %w", userID, err)
	}
	return warnings, nil
}

func (s *sqliteClient) ResetWarnings(ctx context.Context, userID int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, err := s.db.ExecContext(ctx, `UPDATE users SET warnings = 0 WHERE id = ?`, userID); err != nil {
		return fmt.Errorf("reset warnings for user %d: %w", userID, err)
	}
	return nil
}

func (s *sqliteClient) GetUserIDByUsername(ctx context.Context, username string) (int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	username = strings.TrimPrefix(username, "@")
	var userID int64
	err := s.db.GetContext(ctx, &userID, `SELECT id FROM users WHERE username = ? COLLATE NOCASE LIMIT 1`, username)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("lookup user by username %q: %w", username, err)
	}
	return userID, nil
}
