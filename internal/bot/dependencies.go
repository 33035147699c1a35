package bot

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/negahbanbot/negahban/internal/db"
)

// ServiceBot defines bot-specific operations
type ServiceBot interface {
	GetBot() *api.BotAPI
}

// ServiceDB defines database-specific operations
type ServiceDB interface {
	GetDB() db.Client
}

// Service defines the core bot service interface
type Service interface {
	ServiceBot
	ServiceDB
	GetLanguage() string
	GetOwnerID() int64
}

// API is the slice of the Telegram client that the moderation core and
// the command handlers actually use. *api.BotAPI satisfies it.
type API interface {
	Send(c api.Chattable) (api.Message, error)
	Request(c api.Chattable) (*api.APIResponse, error)
	GetChatMember(config api.GetChatMemberConfig) (api.ChatMember, error)
}

// Handler defines the interface for all update handlers in the system
type Handler interface {
	Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error)
}
