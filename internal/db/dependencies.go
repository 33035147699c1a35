package db

import "context"

// Client is the storage collaborator of the moderation core. All write
// paths are safe for concurrent use; AddWarning is a single atomic
// increment-and-read.
type Client interface {
	Close() error

	UpsertUser(ctx context.Context, userID int64, username string) error
	AddWarning(ctx context.Context, userID int64) (int, error)
	ResetWarnings(ctx context.Context, userID int64) error
	GetUserIDByUsername(ctx context.Context, username string) (int64, error)

	GetBannedWords(ctx context.Context) ([]string, error)
	AddBannedWord(ctx context.Context, word string) (bool, error)

	IsChatLicensed(ctx context.Context, chatID int64) (bool, error)
	LicenseChat(ctx context.Context, chatID int64, title string) (bool, error)

	CreatePendingApproval(ctx context.Context, approval *PendingApproval) error
	TakePendingApproval(ctx context.Context, forwardMessageID int) (*PendingApproval, error)
	CountPendingApprovals(ctx context.Context) (int, error)
}
