package bot

import (
	"context"
	"sync"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Dispatcher fans updates out to a fixed set of workers sharded by chat.
// A slow or failing chat only ever stalls its own shard, and updates
// from one chat keep their arrival order.
type Dispatcher struct {
	process func(ctx context.Context, u *api.Update) error
	queues  []chan *api.Update

	mu         sync.Mutex
	runtimeCtx context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	started    bool
}

func NewDispatcher(workers int, buffer int, process func(ctx context.Context, u *api.Update) error) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	queues := make([]chan *api.Update, workers)
	for i := range queues {
		queues[i] = make(chan *api.Update, buffer)
	}
	return &Dispatcher{
		process: process,
		queues:  queues,
	}
}

func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return nil
	}
	d.runtimeCtx, d.cancel = context.WithCancel(ctx)

	for _, queue := range d.queues {
		queue := queue
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for {
				select {
				case <-d.runtimeCtx.Done():
					return
				case u := <-queue:
					if err := d.process(d.runtimeCtx, u); err != nil {
						log.WithError(err).Errorln("cant process update")
					}
				}
			}
		}()
	}
	d.started = true
	return nil
}

func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return nil
	}
	d.started = false
	cancel := d.cancel
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Dispatch queues the update on its chat's shard. Blocks only when that
// shard's queue is full.
func (d *Dispatcher) Dispatch(ctx context.Context, u *api.Update) error {
	if u == nil {
		return errors.New("update is nil")
	}
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return errors.New("dispatcher is not started")
	}
	runtimeCtx := d.runtimeCtx
	d.mu.Unlock()

	queue := d.queues[d.shard(u)]
	select {
	case queue <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-runtimeCtx.Done():
		return errors.New("dispatcher is stopped")
	}
}

func (d *Dispatcher) shard(u *api.Update) int {
	var chatID int64
	if chat := u.FromChat(); chat != nil {
		chatID = chat.ID
	} else if u.MyChatMember != nil {
		chatID = u.MyChatMember.Chat.ID
	}
	if chatID < 0 {
		chatID = -chatID
	}
	return int(chatID % int64(len(d.queues)))
}
