package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDeduper_CollapsesConcurrentCalls(t *testing.T) {
	d := NewDeduper()
	var calls atomic.Int32
	release := make(chan struct{})

	fn := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "token-1", nil
	}

	const callers = 5
	var started, wg sync.WaitGroup
	results := make([]any, callers)
	started.Add(callers)
	wg.Add(callers)
	for i := range callers {
		go func() {
			defer wg.Done()
			started.Done()
			v, _, err := d.Do(context.Background(), "code-abc", fn)
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
			}
			results[i] = v
		}()
	}
	started.Wait()
	// Give the callers time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("fn ran %d times, want 1", got)
	}
	for i, v := range results {
		if v != "token-1" {
			t.Errorf("caller %d got %v", i, v)
		}
	}
}

func TestDeduper_DistinctKeysRunSeparately(t *testing.T) {
	d := NewDeduper()
	var calls atomic.Int32
	fn := func(context.Context) (any, error) {
		calls.Add(1)
		return nil, nil
	}

	for _, key := range []string{"a", "b", "a"} {
		if _, _, err := d.Do(context.Background(), key, fn); err != nil {
			t.Fatal(err)
		}
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("fn ran %d times, want 3 (sequential calls are not collapsed)", got)
	}
}

func TestDeduper_PropagatesError(t *testing.T) {
	d := NewDeduper()
	want := errors.New("exchange failed")
	_, _, err := d.Do(context.Background(), "k", func(context.Context) (any, error) { return nil, want })
	if !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
}

func TestDeduper_WaiterContextCancelled(t *testing.T) {
	d := NewDeduper()
	release := make(chan struct{})
	defer close(release)

	go d.Do(context.Background(), "slow", func(context.Context) (any, error) {
		<-release
		return nil, nil
	})
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := d.Do(ctx, "slow", func(context.Context) (any, error) {
		t.Error("second fn must not run while the first is in flight")
		return nil, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestDeduper_LeaderCancelDoesNotCancelCall(t *testing.T) {
	d := NewDeduper()
	release := make(chan struct{})
	fn := func(ctx context.Context) (any, error) {
		select {
		case <-release:
			return "ok", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, _, err := d.Do(leaderCtx, "k", fn)
		leaderErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	waiter := make(chan any, 1)
	go func() {
		v, _, err := d.Do(context.Background(), "k", fn)
		if err != nil {
			t.Errorf("waiter: %v", err)
		}
		waiter <- v
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Errorf("leader err = %v, want canceled", err)
	}
	close(release)
	if v := <-waiter; v != "ok" {
		t.Errorf("waiter got %v, want ok", v)
	}
}
