package lifecycle

import (
	"context"
	"errors"
	"fmt"
)

// Component is a long-lived part of the process with explicit start and
// stop phases. Stop must be safe to call even if Start never ran.
type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Runtime struct {
	components []Component
	started    []Component
}

func NewRuntime(components ...Component) *Runtime {
	return &Runtime{components: components}
}

func (r *Runtime) Register(component Component) {
	if component == nil {
		return
	}
	r.components = append(r.components, component)
}

// Start brings components up in registration order. On the first failure
// it stops whatever already started, in reverse order, and returns the
// start error.
func (r *Runtime) Start(ctx context.Context) error {
	for _, component := range r.components {
		if err := component.Start(ctx); err != nil {
			_ = stopAll(ctx, r.started)
			r.started = nil
			return fmt.Errorf("start component: %w", err)
		}
		r.started = append(r.started, component)
	}
	return nil
}

func (r *Runtime) Stop(ctx context.Context) error {
	err := stopAll(ctx, r.started)
	r.started = nil
	return err
}

func stopAll(ctx context.Context, components []Component) error {
	var stopErr error
	for i := len(components) - 1; i >= 0; i-- {
		if err := components[i].Stop(ctx); err != nil {
			stopErr = errors.Join(stopErr, fmt.Errorf("stop component: %w", err))
		}
	}
	return stopErr
}
