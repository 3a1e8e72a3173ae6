package inflight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLatestAppliesResult(t *testing.T) {
	var g Group
	var got string
	err := Latest(&g, context.Background(), "sessions", func(context.Context) (string, error) {
		return "fresh", nil
	}, func(v string) { got = v })
	if err != nil {
		t.Fatal(err)
	}
	if got != "fresh" {
		t.Errorf("expected applied result, got %q", got)
	}
}

func TestLatestCancelsSuperseded(t *testing.T) {
	var g Group
	started := make(chan struct{})
	firstErr := make(chan error, 1)
	var applied []string
	var mu sync.Mutex
	apply := func(v string) {
		mu.Lock()
		applied = append(applied, v)
		mu.Unlock()
	}

	go func() {
		firstErr <- Latest(&g, context.Background(), "docs", func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			return "old", ctx.Err()
		}, apply)
	}()
	<-started

	if err := Latest(&g, context.Background(), "docs", func(context.Context) (string, error) {
		return "new", nil
	}, apply); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-firstErr:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("expected ErrSuperseded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("superseded call was not cancelled")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(applied) != 1 || applied[0] != "new" {
		t.Errorf("only the latest result should apply, got %v", applied)
	}
}

func TestLatestDropsStaleResultIgnoringCancel(t *testing.T) {
	var g Group
	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	var got atomic.Value

	go func() {
		done <- Latest(&g, context.Background(), "k", func(context.Context) (string, error) {
			close(started)
			<-release
			return "stale", nil
		}, func(v string) { got.Store(v) })
	}()
	<-started

	_ = Latest(&g, context.Background(), "k", func(context.Context) (string, error) {
		return "current", nil
	}, func(v string) { got.Store(v) })
	close(release)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Errorf("expected ErrSuperseded, got %v", err)
	}
	if got.Load() != "current" {
		t.Errorf("stale result overwrote current: %v", got.Load())
	}
}

func TestLatestKeysAreIndependent(t *testing.T) {
	var g Group
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- Latest(&g, context.Background(), "a", func(ctx context.Context) (int, error) {
			close(started)
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(50 * time.Millisecond):
				return 1, nil
			}
		}, nil)
	}()
	<-started
	if err := Latest(&g, context.Background(), "b", func(context.Context) (int, error) { return 2, nil }, nil); err != nil {
		t.Fatal(err)
	}
	if err := <-done; err != nil {
		t.Errorf("call on another key must not be superseded: %v", err)
	}
}

func TestLatestReturnsError(t *testing.T) {
	var g Group
	boom := errors.New("boom")
	called := false
	err := Latest(&g, context.Background(), "k", func(context.Context) (int, error) {
		return 0, boom
	}, func(int) { called = true })
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if called {
		t.Error("apply must not run on error")
	}
}

func TestCancel(t *testing.T) {
	var g Group
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- Latest(&g, context.Background(), "k", func(ctx context.Context) (int, error) {
			close(started)
			<-ctx.Done()
			return 0, ctx.Err()
		}, nil)
	}()
	<-started
	g.Cancel("k")
	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Errorf("expected ErrSuperseded after Cancel, got %v", err)
	}
}

func TestExclusiveCollapsesDuplicates(t *testing.T) {
	var g Group
	var calls atomic.Int32
	release := make(chan struct{})
	entered := make(chan struct{})

	var wg sync.WaitGroup
	errs := make([]error, 3)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = g.Exclusive("delete:S1", func() error {
			calls.Add(1)
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	for i := 1; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = g.Exclusive("delete:S1", func() error {
				calls.Add(1)
				return nil
			})
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("expected one underlying call, got %d", n)
	}
	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: %v", i, err)
		}
	}
}
