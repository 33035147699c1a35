package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iamwavecut/tool"

	"github.com/negahbanbot/negahban/internal/db"
)

func (s *sqliteClient) CreatePendingApproval(ctx context.Context, approval *db.PendingApproval) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO pending_approvals (forward_message_id, chat_id, user_id)
		VALUES (:forward_message_id, :chat_id, :user_id)
	`
	return tool.Err(s.db.NamedExecContext(ctx, query, approval))
}

// TakePendingApproval consumes the entry keyed by the forwarded message
// in a single statement, so at most one decision is ever applied to it.
// Returns nil when no entry exists.
func (s *sqliteClient) TakePendingApproval(ctx context.Context, forwardMessageID int) (*db.PendingApproval, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var approval db.PendingApproval
	err := s.db.GetContext(ctx, &approval, `
		DELETE FROM pending_approvals
		WHERE forward_message_id = ?
		RETURNING forward_message_id, chat_id, user_id
	`, forwardMessageID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("take pending approval %d: %w", forwardMessageID, err)
	}
	return &approval, nil
}

func (s *sqliteClient) CountPendingApprovals(ctx context.Context) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM pending_approvals`); err != nil {
		return 0, fmt.Errorf("count pending approvals: %w", err)
	}
	return count, nil
}
