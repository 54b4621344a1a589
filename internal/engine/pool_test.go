package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// blockingEngine holds every Prove until release is closed, tracking the
// peak number of concurrent runs.
type blockingEngine struct {
	release  chan struct{}
	inflight atomic.Int32
	peak     atomic.Int32
}

func newBlockingEngine() *blockingEngine {
	return &blockingEngine{release: make(chan struct{})}
}

func (e *blockingEngine) Prove(ctx context.Context, witness []byte) (Receipt, error) {
	n := e.inflight.Add(1)
	defer e.inflight.Add(-1)
	for {
		p := e.peak.Load()
		if n <= p || e.peak.CompareAndSwap(p, n) {
			break
		}
	}
	<-e.release
	return Receipt{Journal: witness}, nil
}

func (e *blockingEngine) Verify(r Receipt, image ImageID) (bool, error) {
	return true, nil
}

func TestPoolBoundsConcurrency(t *testing.T) {
	fake := newBlockingEngine()
	pool := NewPool(fake, 2, zerolog.Nop())
	defer pool.Close()

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := pool.Prove(context.Background(), []byte("w")); err != nil {
				t.Errorf("Prove failed: %v", err)
			}
		}()
	}

	// Let the first runs reach the engine before opening the gate.
	deadline := time.Now().Add(2 * time.Second)
	for fake.inflight.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(fake.release)
	wg.Wait()

	if got := fake.peak.Load(); got > 2 {
		t.Errorf("pool ran %d provers concurrently, want at most 2", got)
	}
}

func TestPoolAbandonsOnTimeout(t *testing.T) {
	fake := newBlockingEngine()
	defer close(fake.release)
	pool := NewPool(fake, 1, zerolog.Nop())
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := pool.Prove(ctx, []byte("w")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want context.DeadlineExceeded, got %v", err)
	}
}

func TestPoolTimeoutWhileQueued(t *testing.T) {
	fake := newBlockingEngine()
	defer close(fake.release)
	pool := NewPool(fake, 1, zerolog.Nop())
	defer pool.Close()

	// Occupy the only slot.
	go pool.Prove(context.Background(), []byte("holder"))
	deadline := time.Now().Add(2 * time.Second)
	for fake.inflight.Load() < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := pool.Prove(ctx, []byte("queued")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want context.DeadlineExceeded while queued, got %v", err)
	}
}

func TestPoolClose(t *testing.T) {
	fake := newBlockingEngine()
	close(fake.release)
	pool := NewPool(fake, 1, zerolog.Nop())

	if _, err := pool.Prove(context.Background(), []byte("w")); err != nil {
		t.Fatalf("Prove before close failed: %v", err)
	}

	pool.Close()
	pool.Close() // idempotent
	if _, err := pool.Prove(context.Background(), []byte("w")); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("want ErrPoolClosed, got %v", err)
	}
}

func TestPoolVerifyDelegates(t *testing.T) {
	fake := newBlockingEngine()
	close(fake.release)
	pool := NewPool(fake, 1, zerolog.Nop())
	defer pool.Close()

	ok, err := pool.Verify(Receipt{}, ImageID{})
	if err != nil || !ok {
		t.Fatalf("Verify = (%v, %v), want (true, nil)", ok, err)
	}
}
