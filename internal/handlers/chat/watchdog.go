package handlers

import (
	"context"
	"fmt"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/negahbanbot/negahban/internal/bot"
	"github.com/negahbanbot/negahban/internal/i18n"
	"github.com/negahbanbot/negahban/internal/observability"
	"github.com/negahbanbot/negahban/internal/policy/permissions"

	moderation "github.com/negahbanbot/negahban/internal/handlers/moderation"
)

type watchdogStore interface {
	UpsertUser(ctx context.Context, userID int64, username string) error
	GetBannedWords(ctx context.Context) ([]string, error)
	IsChatLicensed(ctx context.Context, chatID int64) (bool, error)
}

type warnEscalator interface {
	Escalate(ctx context.Context, chatID int64, user *api.User, reason string) error
}

type mediaApprover interface {
	Quarantine(ctx context.Context, msg *api.Message) error
	Resolve(ctx context.Context, msg *api.Message) (bool, error)
}

type WatchdogConfig struct {
	SelfID  int64
	OwnerID int64
	Lang    string
}

// Watchdog is the message pipeline: it gates unlicensed chats, exempts
// privileged senders and routes everything else through media
// quarantine and text classification.
type Watchdog struct {
	tg       bot.API
	store    watchdogStore
	warns    warnEscalator
	approval mediaApprover
	config   WatchdogConfig
}

func NewWatchdog(tg bot.API, store watchdogStore, warns warnEscalator, approval mediaApprover, config WatchdogConfig) *Watchdog {
	w := &Watchdog{
		tg:       tg,
		store:    store,
		warns:    warns,
		approval: approval,
		config:   config,
	}
	w.getLogEntry().Debug("created new watchdog")
	return w
}

func (w *Watchdog) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}
	if u == nil {
		return false, errors.New("nil update")
	}

	if u.MyChatMember != nil {
		return w.handleMembershipChange(ctx, u.MyChatMember)
	}

	msg := u.Message
	if msg == nil || chat == nil || user == nil {
		return true, nil
	}

	if chat.IsPrivate() {
		if user.ID == w.config.OwnerID {
			handled, err := w.approval.Resolve(ctx, msg)
			if handled {
				return false, err
			}
		}
		return true, nil
	}

	// The owner is exempt from every gate, including the license check:
	// an unlicensed chat must still let the owner speak and run /authorize.
	if user.ID == w.config.OwnerID {
		return true, nil
	}

	licensed, err := w.store.IsChatLicensed(ctx, chat.ID)
	if err != nil {
		return false, errors.WithMessage(err, "cant check chat license")
	}
	if !licensed {
		return false, w.rejectUnlicensed(ctx, chat.ID)
	}

	if w.isPrivileged(ctx, chat.ID, user) {
		return true, nil
	}

	if err := w.store.UpsertUser(ctx, user.ID, user.UserName); err != nil {
		w.getLogEntry().WithField("user_id", user.ID).WithError(err).Error("cant upsert user")
	}

	if bot.IsMediaMessage(msg) {
		return false, w.approval.Quarantine(ctx, msg)
	}

	content := bot.EffectiveText(msg)
	if content == "" {
		return true, nil
	}

	if moderation.HasLink(msg) {
		observability.RecordViolation("link", chat.ID, user.ID, user.UserName, content)
		return false, w.punish(ctx, msg, user, "link sharing")
	}

	words, err := w.store.GetBannedWords(ctx)
	if err != nil {
		w.getLogEntry().WithError(err).Error("cant load banned words")
		return true, nil
	}
	if word := moderation.MatchBannedWord(content, words); word != "" {
		observability.RecordViolation("banned_word", chat.ID, user.ID, user.UserName, word)
		return false, w.punish(ctx, msg, user, "inappropriate words")
	}

	return true, nil
}

// punish removes the offending message and escalates. The two actions
// are independent, a failed delete must not cancel the warning.
func (w *Watchdog) punish(ctx context.Context, msg *api.Message, user *api.User, reason string) error {
	if err := bot.DeleteChatMessage(ctx, w.tg, msg.Chat.ID, msg.MessageID); err != nil {
		w.getLogEntry().WithField("chat_id", msg.Chat.ID).WithError(err).Warn("cant delete offending message")
	}
	return w.warns.Escalate(ctx, msg.Chat.ID, user, reason)
}

func (w *Watchdog) handleMembershipChange(ctx context.Context, change *api.ChatMemberUpdated) (bool, error) {
	if change.NewChatMember.User == nil || change.NewChatMember.User.ID != w.config.SelfID {
		return true, nil
	}
	switch change.NewChatMember.Status {
	case "member", "administrator", "restricted":
	default:
		return true, nil
	}
	if change.Chat.IsPrivate() {
		return true, nil
	}

	licensed, err := w.store.IsChatLicensed(ctx, change.Chat.ID)
	if err != nil {
		return false, errors.WithMessage(err, "cant check chat license")
	}
	if licensed {
		w.getLogEntry().WithField("chat_id", change.Chat.ID).Info("joined licensed chat")
		return false, nil
	}
	return false, w.rejectUnlicensed(ctx, change.Chat.ID)
}

// rejectUnlicensed announces the chat ID for out-of-band activation and
// leaves. The notice is the only trace the bot leaves behind.
func (w *Watchdog) rejectUnlicensed(ctx context.Context, chatID int64) error {
	notice := fmt.Sprintf(
		i18n.Get("⛔️ This group is not licensed. Give this chat ID to the operator to activate: %d", w.config.Lang),
		chatID,
	)
	if _, err := w.tg.Send(api.NewMessage(chatID, notice)); err != nil {
		w.getLogEntry().WithField("chat_id", chatID).WithError(err).Warn("cant send license notice")
	}
	if err := bot.LeaveChat(ctx, w.tg, chatID); err != nil {
		return errors.WithMessage(err, "cant leave unlicensed chat")
	}
	w.getLogEntry().WithField("chat_id", chatID).Info("left unlicensed chat")
	return nil
}

// isPrivileged reports whether the sender is exempt from moderation.
// Lookup failures count as not privileged, moderation keeps running
// when the privilege source is unavailable.
func (w *Watchdog) isPrivileged(ctx context.Context, chatID int64, user *api.User) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}
	if user.ID == w.config.OwnerID {
		return true
	}
	member, err := w.tg.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: user.ID,
		},
	})
	if err != nil {
		w.getLogEntry().WithField("user_id", user.ID).WithError(err).Warn("cant get chat member")
		return false
	}
	return permissions.IsChatAdmin(&member)
}

func (w *Watchdog) getLogEntry() *log.Entry {
	return log.WithField("context", "watchdog")
}
