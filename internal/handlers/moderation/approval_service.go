package moderation

import (
	"context"
	"fmt"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/negahbanbot/negahban/internal/bot"
	"github.com/negahbanbot/negahban/internal/config"
	"github.com/negahbanbot/negahban/internal/db"
	"github.com/negahbanbot/negahban/internal/i18n"
	"github.com/negahbanbot/negahban/internal/observability"
)

type approvalStore interface {
	CreatePendingApproval(ctx context.Context, approval *db.PendingApproval) error
	TakePendingApproval(ctx context.Context, forwardMessageID int) (*db.PendingApproval, error)
}

// ApprovalService routes media through a human reviewer. Every media
// message is pulled out of the chat and forwarded to the approver, who
// answers the forward in a private chat to release or discard it.
type ApprovalService struct {
	tg      bot.API
	store   approvalStore
	janitor cleaner
	cfg     config.Moderation
	ownerID int64
	lang    string
}

func NewApprovalService(tg bot.API, store approvalStore, janitor cleaner, cfg config.Moderation, ownerID int64, lang string) *ApprovalService {
	return &ApprovalService{
		tg:      tg,
		store:   store,
		janitor: janitor,
		cfg:     cfg,
		ownerID: ownerID,
		lang:    lang,
	}
}

// Quarantine forwards the media to the approver and removes it from the
// chat. The original is deleted and the sender notified even when the
// forward fails, so unreviewed media never stays visible.
func (s *ApprovalService) Quarantine(ctx context.Context, msg *api.Message) error {
	if msg == nil || msg.From == nil {
		return errors.New("no message to quarantine")
	}
	chatID := msg.Chat.ID

	entry := log.WithField("chat_id", chatID).WithField("user_id", msg.From.ID)

	forwarded, err := s.tg.Send(api.NewForward(s.ownerID, chatID, msg.MessageID))
	if err != nil {
		entry.WithError(err).Warn("cant forward media to approver")
	} else {
		if err := s.store.CreatePendingApproval(ctx, &db.PendingApproval{
			ForwardMessageID: forwarded.MessageID,
			ChatID:           chatID,
			UserID:           msg.From.ID,
		}); err != nil {
			entry.WithError(err).Error("cant persist pending approval")
		}
		prompt := fmt.Sprintf(
			i18n.Get("📩 Media pending approval\nUser: %s\nChat: %s\n\n✅ approve / ❌ reject", s.lang),
			bot.MentionHTML(msg.From),
			api.EscapeText(api.ModeHTML, msg.Chat.Title),
		)
		promptMsg := api.NewMessage(s.ownerID, prompt)
		promptMsg.ParseMode = api.ModeHTML
		promptMsg.ReplyParameters.MessageID = forwarded.MessageID
		if _, err := s.tg.Send(promptMsg); err != nil {
			entry.WithError(err).Warn("cant send approval prompt")
		}
		observability.RecordQuarantine(chatID, msg.From.ID)
	}

	if err := bot.DeleteChatMessage(ctx, s.tg, chatID, msg.MessageID); err != nil {
		entry.WithError(err).Warn("cant delete quarantined media")
	}

	notice := fmt.Sprintf(i18n.Get("🔒 Dear %s, your file was sent for review.", s.lang), bot.MentionHTML(msg.From))
	noticeMsg := api.NewMessage(chatID, notice)
	noticeMsg.ParseMode = api.ModeHTML
	sent, err := s.tg.Send(noticeMsg)
	if err != nil {
		return errors.WithMessage(err, "cant send quarantine notice")
	}
	s.janitor.DeleteAfter(chatID, sent.MessageID, s.cfg.NoticeTTL)
	return nil
}

// Resolve interprets a private reply from the approver. It reports
// whether the message was consumed as a decision. Replies that are not
// a recognized decision token are left alone, the approver may be
// talking about something else.
func (s *ApprovalService) Resolve(ctx context.Context, msg *api.Message) (bool, error) {
	if msg == nil || msg.ReplyToMessage == nil {
		return false, nil
	}

	var approve bool
	switch strings.TrimSpace(msg.Text) {
	case i18n.Get("approve", s.lang):
		approve = true
	case i18n.Get("reject", s.lang):
		approve = false
	default:
		return false, nil
	}

	pending, err := s.store.TakePendingApproval(ctx, msg.ReplyToMessage.MessageID)
	if err != nil {
		return true, errors.WithMessage(err, "cant take pending approval")
	}
	if pending == nil {
		_, err := s.tg.Send(api.NewMessage(s.ownerID, i18n.Get("⚠️ Message not found.", s.lang)))
		return true, errors.WithMessage(err, "cant send not found notice")
	}

	entry := log.WithField("chat_id", pending.ChatID).WithField("user_id", pending.UserID)

	if approve {
		observability.RecordApproval("approve", pending.ChatID, pending.UserID)
		release := api.NewCopyMessage(pending.ChatID, s.ownerID, msg.ReplyToMessage.MessageID)
		release.Caption = i18n.Get("✅ Approved\nby the group admin.", s.lang)
		if _, err := s.tg.Send(release); err != nil {
			entry.WithError(err).Warn("cant release approved media")
			return true, errors.WithMessage(err, "cant release approved media")
		}
		_, err := s.tg.Send(api.NewMessage(s.ownerID, i18n.Get("✅ Sent.", s.lang)))
		return true, errors.WithMessage(err, "cant send approval ack")
	}

	observability.RecordApproval("reject", pending.ChatID, pending.UserID)
	name := s.senderName(pending.ChatID, pending.UserID)
	notice := fmt.Sprintf(i18n.Get("❌ Media sent by %s was not approved.", s.lang), name)
	noticeMsg := api.NewMessage(pending.ChatID, notice)
	noticeMsg.ParseMode = api.ModeHTML
	sent, err := s.tg.Send(noticeMsg)
	if err != nil {
		entry.WithError(err).Warn("cant send rejection notice")
	} else {
		s.janitor.DeleteAfter(pending.ChatID, sent.MessageID, s.cfg.RejectionNoticeTTL)
	}
	_, err = s.tg.Send(api.NewMessage(s.ownerID, i18n.Get("❌ Rejected.", s.lang)))
	return true, errors.WithMessage(err, "cant send rejection ack")
}

func (s *ApprovalService) senderName(chatID int64, userID int64) string {
	member, err := s.tg.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			ChatConfig: api.ChatConfig{ChatID: chatID},
			UserID:     userID,
		},
	})
	if err != nil || member.User == nil {
		return i18n.Get("user", s.lang)
	}
	return bot.MentionHTML(member.User)
}
