package sqlite

import (
	"context"
	"fmt"
	"strings"
)

func (s *sqliteClient) GetBannedWords(ctx context.Context) ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var words []string
	if err := s.db.SelectContext(ctx, &words, `SELECT word FROM banned_words ORDER BY word`); err != nil {
		return nil, fmt.Errorf("select banned words: %w", err)
	}
	return words, nil
}

// AddBannedWord stores the lowercased literal. The second return reports
// whether the word was new; re-adding an existing word is not an error.
func (s *sqliteClient) AddBannedWord(ctx context.Context, word string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	word = strings.ToLower(strings.TrimSpace(word))
	result, err := s.db.ExecContext(ctx, `INSERT INTO banned_words (word) VALUES (?) ON CONFLICT(word) DO NOTHING`, word)
	if err != nil {
		return false, fmt.Errorf("insert banned word %q: %w", word, err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return inserted > 0, nil
}
