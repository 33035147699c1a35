package bot

import (
	"context"
	"fmt"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
)

// Transport operations required by the moderation core. All of them are
// fallible and never retried here; the caller decides what a failure
// means.

func DeleteChatMessage(ctx context.Context, bot API, chatID int64, messageID int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if _, err := bot.Request(api.NewDeleteMessage(chatID, messageID)); err != nil {
		return errors.WithMessage(err, "cant delete message")
	}
	return nil
}

func BanUserFromChat(ctx context.Context, bot API, userID int64, chatID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if _, err := bot.Request(api.BanChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: userID,
		},
		RevokeMessages: true,
	}); err != nil {
		return errors.WithMessage(err, "cant ban")
	}
	return nil
}

func UnbanUserFromChat(ctx context.Context, bot API, userID int64, chatID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if _, err := bot.Request(api.UnbanChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: userID,
		},
		OnlyIfBanned: true,
	}); err != nil {
		return errors.WithMessage(err, "cant unban")
	}
	return nil
}

func UnrestrictChatting(ctx context.Context, bot API, userID int64, chatID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if _, err := bot.Request(api.RestrictChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: userID,
		},
		Permissions: &api.ChatPermissions{
			CanSendMessages:       true,
			CanSendAudios:         true,
			CanSendDocuments:      true,
			CanSendPhotos:         true,
			CanSendVideos:         true,
			CanSendVideoNotes:     true,
			CanSendVoiceNotes:     true,
			CanSendPolls:          true,
			CanSendOtherMessages:  true,
			CanAddWebPagePreviews: true,
		},
	}); err != nil {
		return errors.WithMessage(err, "cant unrestrict")
	}
	return nil
}

func LeaveChat(ctx context.Context, bot API, chatID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if _, err := bot.Request(api.LeaveChatConfig{
		ChatConfig: api.ChatConfig{
			ChatID: chatID,
		},
	}); err != nil {
		return errors.WithMessage(err, "cant leave chat")
	}
	return nil
}

func GetUN(user *api.User) string {
	if user == nil {
		return ""
	}
	userName := user.UserName
	if len(userName) == 0 {
		userName = user.FirstName + " " + user.LastName
		userName = strings.TrimSpace(userName)
	}
	return userName
}

func GetFullName(user *api.User) string {
	if user == nil {
		return ""
	}
	fullName := user.FirstName + " " + user.LastName
	fullName = strings.TrimSpace(fullName)
	if len(fullName) == 0 {
		fullName = user.UserName
	}
	return fullName
}

// MentionHTML renders an inline mention that works even for users
// without a public username.
func MentionHTML(user *api.User) string {
	if user == nil {
		return ""
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, user.ID, api.EscapeText(api.ModeHTML, GetFullName(user)))
}

// EffectiveText returns the message text, falling back to the caption.
func EffectiveText(msg *api.Message) string {
	if msg == nil {
		return ""
	}
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

// IsMediaMessage reports whether the message carries media that goes
// through the human approval workflow instead of text classification.
func IsMediaMessage(msg *api.Message) bool {
	if msg == nil {
		return false
	}
	return msg.Photo != nil ||
		msg.Video != nil ||
		msg.Animation != nil ||
		msg.Sticker != nil ||
		msg.Document != nil ||
		msg.Voice != nil ||
		msg.VideoNote != nil
}
