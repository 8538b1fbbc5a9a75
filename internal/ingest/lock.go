package ingest

// lock.go serialises ingestion runs.
//
// Ingestion replaces whole tables and has no versioning, so two runs must
// never overlap. RunLock covers a single process; RedisLock covers several
// replicas sharing one database.

import (
	"context"
	"sync"
	"time"
)

// DefaultLockWait is how long Acquire waits before giving up.
const DefaultLockWait = 5 * time.Second

// Lock is held for the duration of one ingestion run.
type Lock interface {
	// Acquire blocks until the lock is held, the wait expires
	// (ErrIngestionInProgress) or ctx is done.
	Acquire(ctx context.Context) error

	// Release must be called exactly once per successful Acquire.
	Release()

	// Busy reports whether some run currently holds the lock.
	Busy(ctx context.Context) bool
}

// RunLock is an in-process Lock.
type RunLock struct {
	slot    chan struct{}
	maxWait time.Duration

	mu       sync.RWMutex
	holding  bool
	acquired time.Time
}

// NewRunLock creates a lock that waits at most maxWait in Acquire.
func NewRunLock(maxWait time.Duration) *RunLock {
	if maxWait <= 0 {
		maxWait = DefaultLockWait
	}
	return &RunLock{
		slot:    make(chan struct{}, 1),
		maxWait: maxWait,
	}
}

func (l *RunLock) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.slot <- struct{}{}:
		l.mark(true)
		return nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrIngestionInProgress
	}
}

// TryAcquire takes the lock without waiting.
func (l *RunLock) TryAcquire() bool {
	select {
	case l.slot <- struct{}{}:
		l.mark(true)
		return true
	default:
		return false
	}
}

func (l *RunLock) Release() {
	l.mark(false)
	<-l.slot
}

func (l *RunLock) Busy(context.Context) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.holding
}

// HeldSince returns when the current holder acquired the lock.
func (l *RunLock) HeldSince() (time.Time, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.acquired, l.holding
}

// WaitForDrain blocks until no run holds the lock or ctx is done. Used on
// shutdown so an in-flight run can commit.
func (l *RunLock) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if !l.Busy(ctx) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *RunLock) mark(holding bool) {
	l.mu.Lock()
	l.holding = holding
	if holding {
		l.acquired = time.Now()
	} else {
		l.acquired = time.Time{}
	}
	l.mu.Unlock()
}
