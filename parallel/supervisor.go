package parallel

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrSuperseded is the result of a task replaced by a newer one for the same
// key. It matches context.Canceled.
var ErrSuperseded = fmt.Errorf("superseded by a newer task: %w", context.Canceled)

type task struct {
	id     uint64
	cancel context.CancelCauseFunc
}

// Supervisor runs at most one live task per key. Submitting a task for a key
// cancels the task previously submitted for it.
type Supervisor struct {
	do WorkerFunc

	mu      sync.Mutex
	seq     uint64
	running map[string]task
}

func NewSupervisor(do WorkerFunc) *Supervisor {
	return &Supervisor{
		do:      do,
		running: make(map[string]task),
	}
}

// Submit schedules fn for key and returns a channel that receives its
// result once. A task that is superseded before or while it runs yields
// ErrSuperseded, provided fn honours its context.
func (s *Supervisor) Submit(ctx context.Context, key string, fn func(context.Context) error) <-chan error {
	res := make(chan error, 1)
	ctx, cancel := context.WithCancelCause(ctx)

	s.mu.Lock()
	if prev, ok := s.running[key]; ok {
		prev.cancel(ErrSuperseded)
	}
	s.seq++
	id := s.seq
	s.running[key] = task{id: id, cancel: cancel}
	s.mu.Unlock()

	s.do(func() {
		defer s.done(key, id, cancel)

		if ctx.Err() != nil {
			res <- context.Cause(ctx)
			return
		}

		err := fn(ctx)
		if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
			err = context.Cause(ctx)
		}
		res <- err
	})

	return res
}

// Running reports the number of keys with a live task.
func (s *Supervisor) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

func (s *Supervisor) done(key string, id uint64, cancel context.CancelCauseFunc) {
	cancel(nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.running[key]; ok && t.id == id {
		delete(s.running, key)
	}
}
