package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_BoundsConcurrency(t *testing.T) {
	p := New(3)

	var running, peak int64
	for i := 0; i < 12; i++ {
		if err := p.Go(context.Background(), func() {
			cur := atomic.AddInt64(&running, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&running, -1)
		}); err != nil {
			t.Fatalf("Go failed: %v", err)
		}
	}
	p.Wait()

	if peak > 3 {
		t.Errorf("Expected at most 3 concurrent jobs, saw %d", peak)
	}
	if p.InFlight() != 0 {
		t.Errorf("Expected no jobs in flight after Wait, got %d", p.InFlight())
	}
}

func TestPool_GoHonorsContext(t *testing.T) {
	p := New(1)
	release := make(chan struct{})
	if err := p.Go(context.Background(), func() { <-release }); err != nil {
		t.Fatalf("first Go failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ran := false
	err := p.Go(ctx, func() { ran = true })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline error, got %v", err)
	}

	close(release)
	p.Wait()
	if ran {
		t.Error("Job ran despite context expiring before a slot was free")
	}
}

func TestPool_TryGo(t *testing.T) {
	p := New(2)
	release := make(chan struct{})
	block := func() { <-release }

	if !p.TryGo(block) || !p.TryGo(block) {
		t.Fatal("Expected two free slots")
	}
	if p.TryGo(block) {
		t.Fatal("Expected pool to be full")
	}
	if p.InFlight() != 2 {
		t.Errorf("Expected 2 in flight, got %d", p.InFlight())
	}

	close(release)
	p.Wait()

	select {
	case <-p.Freed():
	default:
		t.Error("Expected a freed signal after jobs completed")
	}
}

func TestPool_RecoversPanics(t *testing.T) {
	var mu sync.Mutex
	var recovered []error
	p := New(2, WithPanicHandler(func(err error) {
		mu.Lock()
		recovered = append(recovered, err)
		mu.Unlock()
	}))

	_ = p.Go(context.Background(), func() { panic("boom") })
	_ = p.Go(context.Background(), func() {})
	p.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(recovered) != 1 {
		t.Fatalf("Expected one recovered panic, got %d", len(recovered))
	}
	if p.InFlight() != 0 {
		t.Errorf("Slot leaked after panic: %d in flight", p.InFlight())
	}
}

func TestNew_DefaultSize(t *testing.T) {
	if got := New(0).Size(); got != 1 {
		t.Errorf("Expected default size 1, got %d", got)
	}
}
