package db

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

type (
	Chat struct {
		ID         int64      `db:"id"`
		Title      string     `db:"title"`
		Licensed   bool       `db:"licensed"`
		LicensedAt *time.Time `db:"licensed_at"`
	}

	User struct {
		ID        int64     `db:"id"`
		Username  string    `db:"username"`
		Warnings  int       `db:"warnings"`
		CreatedAt time.Time `db:"created_at"`
	}

	// PendingApproval correlates a message forwarded to the approver with
	// the group and sender it came from. Consumed exactly once on
	// resolution; never expired otherwise.
	PendingApproval struct {
		ForwardMessageID int       `db:"forward_message_id"`
		ChatID           int64     `db:"chat_id"`
		UserID           int64     `db:"user_id"`
		CreatedAt        time.Time `db:"created_at"`
	}
)
