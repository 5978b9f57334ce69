package locksvc

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
)

var errWaitTimeout = errors.New("timed out waiting for the course lock")

// MemoryLocker serializes mutations of a course within this process.
type MemoryLocker struct {
	wait time.Duration

	mu     sync.Mutex
	tokens map[string]*token
}

// token is a one-slot semaphore; refs counts holders and waiters so idle tokens can be dropped.
type token struct {
	slot chan struct{}
	refs int
}

var _ core.Locker = (*MemoryLocker)(nil)

func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	return &MemoryLocker{wait: wait, tokens: make(map[string]*token)}
}

func (l *MemoryLocker) acquire(courseID string) *token {
	l.mu.Lock()
	defer l.mu.Unlock()
	tok, ok := l.tokens[courseID]
	if !ok {
		tok = &token{slot: make(chan struct{}, 1)}
		l.tokens[courseID] = tok
	}
	tok.refs++
	return tok
}

func (l *MemoryLocker) release(courseID string, tok *token) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tok.refs--
	if tok.refs == 0 {
		delete(l.tokens, courseID)
	}
}

func (l *MemoryLocker) Lock(ctx context.Context, courseID string) (func(), error) {
	tok := l.acquire(courseID)

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case tok.slot <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-tok.slot
				l.release(courseID, tok)
			})
		}, nil
	case <-timer.C:
		l.release(courseID, tok)
		return nil, core.NewConflictError(core.ResourceCourse, courseID, errWaitTimeout)
	case <-ctx.Done():
		l.release(courseID, tok)
		return nil, core.NewConflictError(core.ResourceCourse, courseID, ctx.Err())
	}
}
