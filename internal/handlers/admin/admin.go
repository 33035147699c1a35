package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/negahbanbot/negahban/internal/bot"
	"github.com/negahbanbot/negahban/internal/config"
	"github.com/negahbanbot/negahban/internal/i18n"
	"github.com/negahbanbot/negahban/internal/observability"
	"github.com/negahbanbot/negahban/internal/policy/permissions"
)

type adminStore interface {
	ResetWarnings(ctx context.Context, userID int64) error
	GetUserIDByUsername(ctx context.Context, username string) (int64, error)
	AddBannedWord(ctx context.Context, word string) (bool, error)
	LicenseChat(ctx context.Context, chatID int64, title string) (bool, error)
}

type warnEscalator interface {
	Escalate(ctx context.Context, chatID int64, user *api.User, reason string) error
}

type cleaner interface {
	DeleteAfter(chatID int64, messageID int, delay time.Duration)
}

type AdminConfig struct {
	OwnerID    int64
	Lang       string
	Moderation config.Moderation
}

// Admin executes the privileged command surface. Commands from anyone
// below admin are swallowed without a response.
type Admin struct {
	tg      bot.API
	store   adminStore
	warns   warnEscalator
	janitor cleaner
	config  AdminConfig
}

func NewAdmin(tg bot.API, store adminStore, warns warnEscalator, janitor cleaner, config AdminConfig) *Admin {
	a := &Admin{
		tg:      tg,
		store:   store,
		warns:   warns,
		janitor: janitor,
		config:  config,
	}
	a.getLogEntry().Debug("created new admin")
	return a
}

func (a *Admin) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}
	if u == nil || u.Message == nil || chat == nil || user == nil {
		return true, nil
	}
	msg := u.Message
	if !msg.IsCommand() {
		return true, nil
	}

	command := msg.Command()
	switch command {
	case "warn", "ban", "unmute", "addword", "authorize":
	default:
		return true, nil
	}

	entry := a.getLogEntry().WithField("command", command).
		WithField("chat_id", chat.ID).
		WithField("user_id", user.ID)

	if !a.isPrivileged(chat, user, command) {
		entry.Debug("command from non privileged user swallowed")
		return false, nil
	}

	if !chat.IsPrivate() {
		if err := bot.DeleteChatMessage(ctx, a.tg, chat.ID, msg.MessageID); err != nil {
			entry.WithError(err).Debug("cant delete command message")
		}
	}

	var err error
	switch command {
	case "warn":
		err = a.handleWarn(ctx, msg, chat)
	case "ban":
		err = a.handleBan(ctx, msg, chat)
	case "unmute":
		err = a.handleUnmute(ctx, msg, chat)
	case "addword":
		err = a.handleAddWord(ctx, msg, chat)
	case "authorize":
		err = a.handleAuthorize(ctx, msg, chat)
	}
	if err != nil {
		entry.WithError(err).Error("command failed")
	}
	return false, nil
}

func (a *Admin) handleWarn(ctx context.Context, msg *api.Message, chat *api.Chat) error {
	reply := msg.ReplyToMessage
	if reply == nil || reply.From == nil {
		a.notify(chat.ID, i18n.Get("⚠️ Please reply to the user's message.", a.config.Lang), a.config.Moderation.ErrorNoticeTTL)
		return nil
	}
	observability.RecordViolation("manual", chat.ID, reply.From.ID, reply.From.UserName, bot.EffectiveText(reply))
	return a.warns.Escalate(ctx, chat.ID, reply.From, "manual warning")
}

func (a *Admin) handleBan(ctx context.Context, msg *api.Message, chat *api.Chat) error {
	reply := msg.ReplyToMessage
	if reply == nil || reply.From == nil {
		a.notify(chat.ID, i18n.Get("⚠️ Please reply to the user's message.", a.config.Lang), a.config.Moderation.ErrorNoticeTTL)
		return nil
	}
	if err := bot.BanUserFromChat(ctx, a.tg, reply.From.ID, chat.ID); err != nil {
		a.notify(chat.ID, i18n.Get("❌ Failed to ban user.", a.config.Lang), a.config.Moderation.ErrorNoticeTTL)
		return err
	}
	notice := fmt.Sprintf(i18n.Get("🚫 User %s was removed from the group.", a.config.Lang), bot.MentionHTML(reply.From))
	a.notify(chat.ID, notice, a.config.Moderation.NoticeTTL)
	return nil
}

func (a *Admin) handleUnmute(ctx context.Context, msg *api.Message, chat *api.Chat) error {
	userID, label, err := a.resolveTarget(ctx, msg)
	if err != nil {
		return err
	}
	if userID == 0 {
		return nil
	}

	// Restoring a user means reversing everything an escalation could
	// have done: the ban, the restrictions and the warning counter.
	if err := bot.UnbanUserFromChat(ctx, a.tg, userID, chat.ID); err != nil {
		a.notify(chat.ID, i18n.Get("❌ Failed to lift restrictions.", a.config.Lang), a.config.Moderation.ErrorNoticeTTL)
		return err
	}
	if err := bot.UnrestrictChatting(ctx, a.tg, userID, chat.ID); err != nil {
		a.notify(chat.ID, i18n.Get("❌ Failed to lift restrictions.", a.config.Lang), a.config.Moderation.ErrorNoticeTTL)
		return err
	}
	if err := a.store.ResetWarnings(ctx, userID); err != nil {
		a.notify(chat.ID, i18n.Get("❌ Failed to lift restrictions.", a.config.Lang), a.config.Moderation.ErrorNoticeTTL)
		return err
	}

	notice := fmt.Sprintf(i18n.Get("✅ Restrictions for %s were lifted.", a.config.Lang), label)
	a.notify(chat.ID, notice, a.config.Moderation.NoticeTTL)
	return nil
}

// resolveTarget finds the subject of a command: the replied-to sender,
// a numeric ID argument or a username argument. A zero user ID with a
// nil error means the admin was already told what went wrong.
func (a *Admin) resolveTarget(ctx context.Context, msg *api.Message) (int64, string, error) {
	if reply := msg.ReplyToMessage; reply != nil && reply.From != nil {
		return reply.From.ID, bot.MentionHTML(reply.From), nil
	}

	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		a.notify(msg.Chat.ID, i18n.Get("⚠️ Reply to a message or provide a user ID/username.", a.config.Lang), a.config.Moderation.ErrorNoticeTTL)
		return 0, "", nil
	}

	if userID, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return userID, api.EscapeText(api.ModeHTML, arg), nil
	}

	userID, err := a.store.GetUserIDByUsername(ctx, arg)
	if err != nil {
		return 0, "", err
	}
	if userID == 0 {
		notice := fmt.Sprintf(i18n.Get("❌ User %s not found.", a.config.Lang), api.EscapeText(api.ModeHTML, arg))
		a.notify(msg.Chat.ID, notice, a.config.Moderation.ErrorNoticeTTL)
		return 0, "", nil
	}
	return userID, api.EscapeText(api.ModeHTML, arg), nil
}

func (a *Admin) handleAddWord(ctx context.Context, msg *api.Message, chat *api.Chat) error {
	word := strings.TrimSpace(msg.CommandArguments())
	if word == "" {
		a.notify(chat.ID, i18n.Get("⚠️ Please provide a word.", a.config.Lang), a.config.Moderation.ErrorNoticeTTL)
		return nil
	}
	inserted, err := a.store.AddBannedWord(ctx, word)
	if err != nil {
		return err
	}
	key := "⚠️ Word '%s' already exists."
	if inserted {
		key = "✅ Word '%s' added."
	}
	notice := fmt.Sprintf(i18n.Get(key, a.config.Lang), api.EscapeText(api.ModeHTML, word))
	a.notify(chat.ID, notice, a.config.Moderation.WordNoticeTTL)
	return nil
}

func (a *Admin) handleAuthorize(ctx context.Context, msg *api.Message, chat *api.Chat) error {
	targetID := chat.ID
	title := chat.Title
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		parsed, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			a.notify(chat.ID, i18n.Get("⚠️ Reply to a message or provide a user ID/username.", a.config.Lang), a.config.Moderation.ErrorNoticeTTL)
			return nil
		}
		targetID = parsed
		title = ""
	} else if chat.IsPrivate() {
		// Licensing the private chat itself makes no sense.
		return nil
	}

	newly, err := a.store.LicenseChat(ctx, targetID, title)
	if err != nil {
		return err
	}
	key := "⚠️ This group is already licensed."
	if newly {
		key = "✅ This group is now licensed."
	}
	a.notify(chat.ID, i18n.Get(key, a.config.Lang), a.config.Moderation.NoticeTTL)
	return nil
}

// notify posts a transient notice and schedules its removal. Failures
// are logged only, notices never block command execution.
func (a *Admin) notify(chatID int64, text string, ttl time.Duration) {
	msg := api.NewMessage(chatID, text)
	msg.ParseMode = api.ModeHTML
	sent, err := a.tg.Send(msg)
	if err != nil {
		a.getLogEntry().WithField("chat_id", chatID).WithError(err).Warn("cant send notice")
		return
	}
	if chatID < 0 {
		a.janitor.DeleteAfter(chatID, sent.MessageID, ttl)
	}
}

func (a *Admin) isPrivileged(chat *api.Chat, user *api.User, command string) bool {
	if user.ID == a.config.OwnerID {
		return true
	}
	// Licensing stays with the operator.
	if command == "authorize" {
		return false
	}
	if chat.IsPrivate() {
		return false
	}
	member, err := a.tg.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			ChatConfig: api.ChatConfig{
				ChatID: chat.ID,
			},
			UserID: user.ID,
		},
	})
	if err != nil {
		a.getLogEntry().WithField("user_id", user.ID).WithError(err).Warn("cant get chat member")
		return false
	}
	return permissions.IsChatAdmin(&member)
}

func (a *Admin) getLogEntry() *log.Entry {
	return log.WithField("context", "admin")
}
