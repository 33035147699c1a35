package moderation

import (
	"context"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/negahbanbot/negahban/internal/db"
)

// apiStub records outgoing Telegram calls and answers them according to
// the configured failure hooks.
type apiStub struct {
	mu        sync.Mutex
	sent      []api.Chattable
	requested []api.Chattable

	sendErr    func(c api.Chattable) error
	requestErr func(c api.Chattable) error

	member    api.ChatMember
	memberErr error

	nextMessageID int
}

func (s *apiStub) Send(c api.Chattable) (api.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		if err := s.sendErr(c); err != nil {
			return api.Message{}, err
		}
	}
	s.sent = append(s.sent, c)
	s.nextMessageID++
	return api.Message{MessageID: s.nextMessageID}, nil
}

func (s *apiStub) Request(c api.Chattable) (*api.APIResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requestErr != nil {
		if err := s.requestErr(c); err != nil {
			return nil, err
		}
	}
	s.requested = append(s.requested, c)
	return &api.APIResponse{Ok: true}, nil
}

func (s *apiStub) GetChatMember(api.GetChatMemberConfig) (api.ChatMember, error) {
	return s.member, s.memberErr
}

func (s *apiStub) sentMessages() []api.MessageConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []api.MessageConfig
	for _, c := range s.sent {
		if msg, ok := c.(api.MessageConfig); ok {
			out = append(out, msg)
		}
	}
	return out
}

type deletion struct {
	chatID    int64
	messageID int
	delay     time.Duration
}

type janitorStub struct {
	mu        sync.Mutex
	deletions []deletion
}

func (j *janitorStub) DeleteAfter(chatID int64, messageID int, delay time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.deletions = append(j.deletions, deletion{chatID, messageID, delay})
}

type warnStoreStub struct {
	count int
	err   error
}

func (s *warnStoreStub) AddWarning(context.Context, int64) (int, error) {
	return s.count, s.err
}

type approvalStoreStub struct {
	mu      sync.Mutex
	created []*db.PendingApproval
	pending *db.PendingApproval
	takeErr error
}

func (s *approvalStoreStub) CreatePendingApproval(_ context.Context, approval *db.PendingApproval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, approval)
	return nil
}

func (s *approvalStoreStub) TakePendingApproval(context.Context, int) (*db.PendingApproval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.pending
	s.pending = nil
	return pending, s.takeErr
}
