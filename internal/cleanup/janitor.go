package cleanup

import (
	"context"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
)

// requester is the slice of the bot API the janitor needs.
type requester interface {
	Request(c api.Chattable) (*api.APIResponse, error)
}

// Janitor deletes transient bot notices after a fixed delay. Jobs are
// fire-and-forget: scheduling never blocks the caller, and a failed
// delete (message already gone, missing permission) is swallowed.
// The cleanup is cosmetic, not correctness-bearing.
type Janitor struct {
	bot requester

	mu         sync.Mutex
	runtimeCtx context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	started    bool
}

func NewJanitor(bot requester) *Janitor {
	return &Janitor{bot: bot}
}

func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.started {
		return nil
	}
	j.runtimeCtx, j.cancel = context.WithCancel(ctx)
	j.started = true
	return nil
}

func (j *Janitor) Stop(ctx context.Context) error {
	j.mu.Lock()
	if !j.started {
		j.mu.Unlock()
		return nil
	}
	j.started = false
	cancel := j.cancel
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		j.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// DeleteAfter schedules a best-effort deletion of the message once the
// delay elapses. Pending jobs die with the janitor's runtime context.
func (j *Janitor) DeleteAfter(chatID int64, messageID int, delay time.Duration) {
	if messageID == 0 {
		return
	}
	runCtx := j.getRuntimeContext()

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-runCtx.Done():
			return
		case <-timer.C:
		}
		if _, err := j.bot.Request(api.NewDeleteMessage(chatID, messageID)); err != nil {
			log.WithFields(log.Fields{
				"chat_id":    chatID,
				"message_id": messageID,
				"error":      err.Error(),
			}).Debug("cant delete transient notice")
		}
	}()
}

func (j *Janitor) getRuntimeContext() context.Context {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.runtimeCtx != nil {
		return j.runtimeCtx
	}
	return context.Background()
}
