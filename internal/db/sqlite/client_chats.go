package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *sqliteClient) IsChatLicensed(ctx context.Context, chatID int64) (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var licensed bool
	err := s.db.GetContext(ctx, &licensed, `SELECT licensed FROM chats WHERE id = ?`, chatID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("get chat %d license: %w", chatID, err)
	}
	return licensed, nil
}

// LicenseChat marks the chat licensed, creating the record on first use.
// The second return reports whether the chat was newly licensed.
func (s *sqliteClient) LicenseChat(ctx context.Context, chatID int64, title string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var already bool
	err := s.db.GetContext(ctx, &already, `SELECT licensed FROM chats WHERE id = ?`, chatID)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("get chat %d license: %w", chatID, err)
	}
	if already {
		return false, nil
	}
	upsert := `
		INSERT INTO chats (id, title, licensed, licensed_at) VALUES (?, ?, TRUE, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, licensed = TRUE, licensed_at = excluded.licensed_at
	`
	if _, err := s.db.ExecContext(ctx, upsert, chatID, title); err != nil {
		return false, fmt.Errorf("license chat %d: %w", chatID, err)
	}
	return true, nil
}
