package moderation

import (
	"context"
	"fmt"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/negahbanbot/negahban/internal/bot"
	"github.com/negahbanbot/negahban/internal/config"
	"github.com/negahbanbot/negahban/internal/i18n"
	"github.com/negahbanbot/negahban/internal/observability"
)

type warnStore interface {
	AddWarning(ctx context.Context, userID int64) (int, error)
}

type cleaner interface {
	DeleteAfter(chatID int64, messageID int, delay time.Duration)
}

// WarnService is the single escalation path for every violation source,
// whether detected automatically or issued by an admin command.
type WarnService struct {
	tg      bot.API
	store   warnStore
	janitor cleaner
	cfg     config.Moderation
	lang    string
}

func NewWarnService(tg bot.API, store warnStore, janitor cleaner, cfg config.Moderation, lang string) *WarnService {
	return &WarnService{
		tg:      tg,
		store:   store,
		janitor: janitor,
		cfg:     cfg,
		lang:    lang,
	}
}

// Escalate records one warning against the user and applies the
// consequence. Below the limit it posts a transient warning notice, at
// the limit it suspends the user and announces the outcome. When the
// suspension itself fails the incident is still surfaced in the chat
// with a degraded notice. The reason is a translation key naming the
// violation category.
func (s *WarnService) Escalate(ctx context.Context, chatID int64, user *api.User, reason string) error {
	if user == nil {
		return errors.New("no user to escalate")
	}

	count, err := s.store.AddWarning(ctx, user.ID)
	if err != nil {
		return errors.WithMessage(err, "cant add warning")
	}

	entry := log.WithField("chat_id", chatID).
		WithField("user_id", user.ID).
		WithField("reason", reason).
		WithField("warnings", count)

	mention := bot.MentionHTML(user)
	reasonText := i18n.Get(reason, s.lang)

	var notice string
	if count >= s.cfg.WarningsLimit {
		if banErr := bot.BanUserFromChat(ctx, s.tg, user.ID, chatID); banErr != nil {
			entry.WithError(banErr).Warn("cant suspend user at warning limit")
			observability.RecordSuspension(false)
			notice = fmt.Sprintf(i18n.Get("🚫 Third warning for %s (the bot lacks ban permission).", s.lang), mention)
		} else {
			entry.Info("user suspended at warning limit")
			observability.RecordSuspension(true)
			notice = fmt.Sprintf(i18n.Get("🚫 User %s was blocked for %s after receiving 3 warnings!", s.lang), mention, reasonText)
		}
	} else {
		entry.Info("user warned")
		notice = fmt.Sprintf(i18n.Get("🚫 Dear %s, %s is not allowed.\n⚠️ Warning: %d/3", s.lang), mention, reasonText, count)
	}

	msg := api.NewMessage(chatID, notice)
	msg.ParseMode = api.ModeHTML
	sent, err := s.tg.Send(msg)
	if err != nil {
		return errors.WithMessage(err, "cant send warning notice")
	}
	s.janitor.DeleteAfter(chatID, sent.MessageID, s.cfg.NoticeTTL)
	return nil
}
