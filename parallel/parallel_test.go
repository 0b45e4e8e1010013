package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsEveryJob(t *testing.T) {
	for _, n := range []int{1, 4} {
		pool := Start(n)
		if pool.Workers() != n {
			t.Errorf("Workers() = %d, want %d", pool.Workers(), n)
		}

		var count atomic.Int64
		for range 100 {
			pool.Do(func() { count.Add(1) })
		}
		pool.Wait(true)

		if got := count.Load(); got != 100 {
			t.Errorf("%d workers ran %d jobs, want 100", n, got)
		}
	}
}

func TestSupervisorSupersedes(t *testing.T) {
	pool := Start(2)
	defer pool.Wait(true)
	sup := NewSupervisor(pool.Do)

	started := make(chan struct{})
	first := sup.Submit(context.Background(), "out.png", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started

	second := sup.Submit(context.Background(), "out.png", func(ctx context.Context) error {
		return nil
	})

	select {
	case err := <-first:
		if !errors.Is(err, context.Canceled) || !errors.Is(err, ErrSuperseded) {
			t.Errorf("first task err = %v, want superseded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first task was not cancelled")
	}

	if err := <-second; err != nil {
		t.Errorf("second task err = %v", err)
	}
}

func TestSupervisorSupersedesQueuedTask(t *testing.T) {
	sup := NewSupervisor(Start(1).Do)

	// A pool of one runs inline, so hold the job back to queue it.
	var queued func()
	sup.do = func(f func()) { queued = f }

	ran := false
	first := sup.Submit(context.Background(), "k", func(context.Context) error {
		ran = true
		return nil
	})
	job := queued

	sup.do = func(f func()) { f() }
	if err := <-sup.Submit(context.Background(), "k", func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}

	job()
	if err := <-first; !errors.Is(err, ErrSuperseded) {
		t.Errorf("queued task err = %v, want superseded", err)
	}
	if ran {
		t.Error("superseded task ran")
	}
	if n := sup.Running(); n != 0 {
		t.Errorf("%d tasks still registered", n)
	}
}

func TestSupervisorKeysAreIndependent(t *testing.T) {
	pool := Start(4)
	defer pool.Wait(true)
	sup := NewSupervisor(pool.Do)

	boom := errors.New("boom")
	a := sup.Submit(context.Background(), "a", func(context.Context) error { return boom })
	b := sup.Submit(context.Background(), "b", func(context.Context) error { return nil })

	if err := <-a; !errors.Is(err, boom) {
		t.Errorf("a err = %v", err)
	}
	if err := <-b; err != nil {
		t.Errorf("b err = %v", err)
	}
}

func TestSupervisorParentCancel(t *testing.T) {
	sup := NewSupervisor(Start(1).Do)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := <-sup.Submit(ctx, "k", func(ctx context.Context) error { return ctx.Err() })
	if !errors.Is(err, context.Canceled) || errors.Is(err, ErrSuperseded) {
		t.Errorf("err = %v, want plain context.Canceled", err)
	}
}
