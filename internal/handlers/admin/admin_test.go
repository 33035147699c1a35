package handlers

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"

	"github.com/negahbanbot/negahban/internal/config"
)

const (
	testOwnerID int64 = 555
	testChatID  int64 = -100
)

var testAdminConfig = AdminConfig{
	OwnerID: testOwnerID,
	Lang:    "en",
	Moderation: config.Moderation{
		WarningsLimit:      3,
		NoticeTTL:          5 * time.Second,
		RejectionNoticeTTL: 10 * time.Second,
		ErrorNoticeTTL:     3 * time.Second,
		WordNoticeTTL:      2 * time.Second,
	},
}

type tgStub struct {
	mu         sync.Mutex
	sent       []api.Chattable
	requested  []api.Chattable
	requestErr func(c api.Chattable) error
	member     api.ChatMember
	memberErr  error
}

func (s *tgStub) Send(c api.Chattable) (api.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, c)
	return api.Message{MessageID: len(s.sent)}, nil
}

func (s *tgStub) Request(c api.Chattable) (*api.APIResponse, error) {
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

func (s *tgStub) GetChatMember(api.GetChatMemberConfig) (api.ChatMember, error) {
	return s.member, s.memberErr
}

func (s *tgStub) notices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.sent {
		if msg, ok := c.(api.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

type storeStub struct {
	resetCalls    []int64
	usernames     map[string]int64
	wordInserted  bool
	words         []string
	licensedCalls []int64
	licensedNewly bool
}

func (s *storeStub) ResetWarnings(_ context.Context, userID int64) error {
	s.resetCalls = append(s.resetCalls, userID)
	return nil
}

func (s *storeStub) GetUserIDByUsername(_ context.Context, username string) (int64, error) {
	return s.usernames[strings.TrimPrefix(username, "@")], nil
}

func (s *storeStub) AddBannedWord(_ context.Context, word string) (bool, error) {
	s.words = append(s.words, word)
	return s.wordInserted, nil
}

func (s *storeStub) LicenseChat(_ context.Context, chatID int64, _ string) (bool, error) {
	s.licensedCalls = append(s.licensedCalls, chatID)
	return s.licensedNewly, nil
}

type escalation struct {
	chatID int64
	userID int64
	reason string
}

type escalatorStub struct {
	escalations []escalation
}

func (e *escalatorStub) Escalate(_ context.Context, chatID int64, user *api.User, reason string) error {
	e.escalations = append(e.escalations, escalation{chatID, user.ID, reason})
	return nil
}

type janitorStub struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (j *janitorStub) DeleteAfter(_ int64, _ int, delay time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.delays = append(j.delays, delay)
}

type fixture struct {
	tg      *tgStub
	store   *storeStub
	warns   *escalatorStub
	janitor *janitorStub
	admin   *Admin
}

func newFixture() *fixture {
	f := &fixture{
		tg:      &tgStub{member: api.ChatMember{Status: "member"}},
		store:   &storeStub{usernames: map[string]int64{}},
		warns:   &escalatorStub{},
		janitor: &janitorStub{},
	}
	f.admin = NewAdmin(f.tg, f.store, f.warns, f.janitor, testAdminConfig)
	return f
}

// command builds a group update whose message is a parsed bot command.
func command(text string, userID int64) (*api.Update, *api.Chat, *api.User) {
	chat := &api.Chat{ID: testChatID, Type: "supergroup", Title: "Test Group"}
	user := &api.User{ID: userID, FirstName: "Ali"}
	cmdLen := len(text)
	if i := strings.Index(text, " "); i > 0 {
		cmdLen = i
	}
	msg := &api.Message{
		MessageID: 42,
		Date:      int(time.Now().Unix()),
		Chat:      *chat,
		From:      user,
		Text:      text,
		Entities:  []api.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}
	return &api.Update{Message: msg}, chat, user
}

func containsNotice(notices []string, substr string) bool {
	for _, n := range notices {
		if strings.Contains(n, substr) {
			return true
		}
	}
	return false
}

func TestAdminIgnoresNonCommands(t *testing.T) {
	t.Parallel()

	f := newFixture()
	chat := &api.Chat{ID: testChatID, Type: "supergroup"}
	user := &api.User{ID: testOwnerID}
	u := &api.Update{Message: &api.Message{Chat: *chat, From: user, Text: "just chatting"}}

	proceed, err := f.admin.Handle(context.Background(), u, chat, user)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !proceed {
		t.Error("plain messages must proceed")
	}
}

func TestAdminSwallowsNonPrivileged(t *testing.T) {
	t.Parallel()

	f := newFixture()
	u, chat, user := command("/warn", 7)

	proceed, err := f.admin.Handle(context.Background(), u, chat, user)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if proceed {
		t.Error("known commands must be consumed")
	}
	if len(f.warns.escalations) != 0 {
		t.Errorf("escalations = %+v, want none", f.warns.escalations)
	}
	if len(f.tg.notices()) != 0 {
		t.Errorf("notices = %v, want silence for non privileged users", f.tg.notices())
	}
}

func TestWarnRequiresReply(t *testing.T) {
	t.Parallel()

	f := newFixture()
	u, chat, user := command("/warn", testOwnerID)

	if _, err := f.admin.Handle(context.Background(), u, chat, user); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !containsNotice(f.tg.notices(), "reply to the user") {
		t.Errorf("notices = %v, want reply reminder", f.tg.notices())
	}
	if len(f.janitor.delays) != 1 || f.janitor.delays[0] != testAdminConfig.Moderation.ErrorNoticeTTL {
		t.Errorf("delays = %v, want error notice TTL", f.janitor.delays)
	}
}

func TestWarnEscalates(t *testing.T) {
	t.Parallel()

	f := newFixture()
	u, chat, user := command("/warn", testOwnerID)
	u.Message.ReplyToMessage = &api.Message{
		MessageID: 40,
		From:      &api.User{ID: 7, FirstName: "Sara"},
		Text:      "offending text",
	}

	proceed, err := f.admin.Handle(context.Background(), u, chat, user)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if proceed {
		t.Error("command must be consumed")
	}
	if len(f.warns.escalations) != 1 {
		t.Fatalf("escalations = %+v, want 1", f.warns.escalations)
	}
	got := f.warns.escalations[0]
	if got.chatID != testChatID || got.userID != 7 || got.reason != "manual warning" {
		t.Errorf("escalation = %+v", got)
	}

	var commandDeleted bool
	for _, c := range f.tg.requested {
		if del, ok := c.(api.DeleteMessageConfig); ok && del.MessageID == 42 {
			commandDeleted = true
		}
	}
	if !commandDeleted {
		t.Error("command message must be removed")
	}
}

func TestBanByReply(t *testing.T) {
	t.Parallel()

	f := newFixture()
	u, chat, user := command("/ban", testOwnerID)
	u.Message.ReplyToMessage = &api.Message{MessageID: 40, From: &api.User{ID: 7, FirstName: "Sara"}}

	if _, err := f.admin.Handle(context.Background(), u, chat, user); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	var banned bool
	for _, c := range f.tg.requested {
		if ban, ok := c.(api.BanChatMemberConfig); ok && ban.UserID == 7 {
			banned = true
		}
	}
	if !banned {
		t.Error("target user must be banned")
	}
	if !containsNotice(f.tg.notices(), "was removed from the group") {
		t.Errorf("notices = %v, want removal notice", f.tg.notices())
	}
}

func TestBanFailureNotice(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.tg.requestErr = func(c api.Chattable) error {
		if _, ok := c.(api.BanChatMemberConfig); ok {
			return errors.New("not enough rights")
		}
		return nil
	}
	u, chat, user := command("/ban", testOwnerID)
	u.Message.ReplyToMessage = &api.Message{MessageID: 40, From: &api.User{ID: 7}}

	if _, err := f.admin.Handle(context.Background(), u, chat, user); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !containsNotice(f.tg.notices(), "Failed to ban") {
		t.Errorf("notices = %v, want failure notice", f.tg.notices())
	}
}

func TestUnmuteByReply(t *testing.T) {
	t.Parallel()

	f := newFixture()
	u, chat, user := command("/unmute", testOwnerID)
	u.Message.ReplyToMessage = &api.Message{MessageID: 40, From: &api.User{ID: 7, FirstName: "Sara"}}

	if _, err := f.admin.Handle(context.Background(), u, chat, user); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	var unbanned, unrestricted bool
	for _, c := range f.tg.requested {
		switch req := c.(type) {
		case api.UnbanChatMemberConfig:
			unbanned = req.UserID == 7
		case api.RestrictChatMemberConfig:
			unrestricted = req.UserID == 7 && req.Permissions != nil && req.Permissions.CanSendMessages
		}
	}
	if !unbanned || !unrestricted {
		t.Errorf("unbanned = %v, unrestricted = %v, want both", unbanned, unrestricted)
	}
	if len(f.store.resetCalls) != 1 || f.store.resetCalls[0] != 7 {
		t.Errorf("resetCalls = %v, want warnings reset for target", f.store.resetCalls)
	}
	if !containsNotice(f.tg.notices(), "were lifted") {
		t.Errorf("notices = %v, want success notice", f.tg.notices())
	}
}

func TestUnmuteByUsername(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.usernames["sara"] = 7
	u, chat, user := command("/unmute @sara", testOwnerID)

	if _, err := f.admin.Handle(context.Background(), u, chat, user); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(f.store.resetCalls) != 1 || f.store.resetCalls[0] != 7 {
		t.Errorf("resetCalls = %v, want resolved target", f.store.resetCalls)
	}
}

func TestUnmuteUnknownUsername(t *testing.T) {
	t.Parallel()

	f := newFixture()
	u, chat, user := command("/unmute @nobody", testOwnerID)

	if _, err := f.admin.Handle(context.Background(), u, chat, user); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !containsNotice(f.tg.notices(), "not found") {
		t.Errorf("notices = %v, want not found notice", f.tg.notices())
	}
	if len(f.store.resetCalls) != 0 {
		t.Errorf("resetCalls = %v, want none", f.store.resetCalls)
	}
}

func TestUnmuteWithoutTarget(t *testing.T) {
	t.Parallel()

	f := newFixture()
	u, chat, user := command("/unmute", testOwnerID)

	if _, err := f.admin.Handle(context.Background(), u, chat, user); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !containsNotice(f.tg.notices(), "provide a user ID") {
		t.Errorf("notices = %v, want usage notice", f.tg.notices())
	}
}

func TestAddWord(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.wordInserted = true
	u, chat, user := command("/addword spam", testOwnerID)

	if _, err := f.admin.Handle(context.Background(), u, chat, user); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(f.store.words) != 1 || f.store.words[0] != "spam" {
		t.Errorf("words = %v, want spam stored", f.store.words)
	}
	if !containsNotice(f.tg.notices(), "added") {
		t.Errorf("notices = %v, want added notice", f.tg.notices())
	}
	if len(f.janitor.delays) != 1 || f.janitor.delays[0] != testAdminConfig.Moderation.WordNoticeTTL {
		t.Errorf("delays = %v, want word notice TTL", f.janitor.delays)
	}
}

func TestAddWordDuplicate(t *testing.T) {
	t.Parallel()

	f := newFixture()
	u, chat, user := command("/addword spam", testOwnerID)

	if _, err := f.admin.Handle(context.Background(), u, chat, user); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !containsNotice(f.tg.notices(), "already exists") {
		t.Errorf("notices = %v, want duplicate notice", f.tg.notices())
	}
}

func TestAddWordWithoutArgument(t *testing.T) {
	t.Parallel()

	f := newFixture()
	u, chat, user := command("/addword", testOwnerID)

	if _, err := f.admin.Handle(context.Background(), u, chat, user); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !containsNotice(f.tg.notices(), "provide a word") {
		t.Errorf("notices = %v, want usage notice", f.tg.notices())
	}
	if len(f.store.words) != 0 {
		t.Errorf("words = %v, want none stored", f.store.words)
	}
}

func TestAuthorizeByOwnerInGroup(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.licensedNewly = true
	u, chat, user := command("/authorize", testOwnerID)

	if _, err := f.admin.Handle(context.Background(), u, chat, user); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(f.store.licensedCalls) != 1 || f.store.licensedCalls[0] != testChatID {
		t.Errorf("licensedCalls = %v, want current chat", f.store.licensedCalls)
	}
	if !containsNotice(f.tg.notices(), "now licensed") {
		t.Errorf("notices = %v, want licensed notice", f.tg.notices())
	}
}

func TestAuthorizeDeniedForChatAdmins(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.tg.member = api.ChatMember{Status: "administrator"}
	u, chat, user := command("/authorize", 7)

	if _, err := f.admin.Handle(context.Background(), u, chat, user); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(f.store.licensedCalls) != 0 {
		t.Errorf("licensedCalls = %v, want none", f.store.licensedCalls)
	}
}

func TestAuthorizeInPrivateWithChatID(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.licensedNewly = true
	chat := &api.Chat{ID: testOwnerID, Type: "private"}
	user := &api.User{ID: testOwnerID}
	u := &api.Update{Message: &api.Message{
		MessageID: 1,
		Chat:      *chat,
		From:      user,
		Text:      "/authorize -100",
		Entities:  []api.MessageEntity{{Type: "bot_command", Offset: 0, Length: 10}},
	}}

	if _, err := f.admin.Handle(context.Background(), u, chat, user); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(f.store.licensedCalls) != 1 || f.store.licensedCalls[0] != testChatID {
		t.Errorf("licensedCalls = %v, want the referenced chat", f.store.licensedCalls)
	}
}

func TestAuthorizeAlreadyLicensed(t *testing.T) {
	t.Parallel()

	f := newFixture()
	u, chat, user := command("/authorize", testOwnerID)

	if _, err := f.admin.Handle(context.Background(), u, chat, user); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !containsNotice(f.tg.notices(), "already licensed") {
		t.Errorf("notices = %v, want already licensed notice", f.tg.notices())
	}
}
