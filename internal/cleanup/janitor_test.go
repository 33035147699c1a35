package cleanup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
)

type requesterStub struct {
	mu       sync.Mutex
	requests []api.Chattable
	err      error
}

func (r *requesterStub) Request(c api.Chattable) (*api.APIResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, c)
	if r.err != nil {
		return nil, r.err
	}
	return &api.APIResponse{Ok: true}, nil
}

func (r *requesterStub) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func TestJanitorDeletesAfterDelay(t *testing.T) {
	t.Parallel()

	stub := &requesterStub{}
	j := NewJanitor(stub)
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	j.DeleteAfter(100, 7, 10*time.Millisecond)

	deadline := time.After(2 * time.Second)
	for stub.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("delete request never issued")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := j.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestJanitorSwallowsDeleteFailure(t *testing.T) {
	t.Parallel()

	stub := &requesterStub{err: errors.New("message to delete not found")}
	j := NewJanitor(stub)
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	j.DeleteAfter(100, 7, time.Millisecond)

	deadline := time.After(2 * time.Second)
	for stub.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("delete request never issued")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := j.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestJanitorIgnoresZeroMessageID(t *testing.T) {
	t.Parallel()

	stub := &requesterStub{}
	j := NewJanitor(stub)
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	j.DeleteAfter(100, 0, time.Millisecond)

	if err := j.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if stub.count() != 0 {
		t.Fatalf("delete attempts = %d, want 0", stub.count())
	}
}

func TestJanitorStopCancelsPendingJobs(t *testing.T) {
	t.Parallel()

	stub := &requesterStub{}
	j := NewJanitor(stub)
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	j.DeleteAfter(100, 7, time.Hour)

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := j.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if stub.count() != 0 {
		t.Fatalf("delete attempts = %d, want 0", stub.count())
	}
}
