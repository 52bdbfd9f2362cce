// Package threadlock serialises turns on the same assistant thread.
package threadlock

import (
	"context"
	"sync"
)

// Locker grants exclusive access to a thread until the returned
// function is called. Lock gives up when ctx is done.
type Locker interface {
	Lock(ctx context.Context, threadID string) (func(), error)
}

type entry struct {
	ch   chan struct{}
	refs int
}

// Local is an in-process Locker.
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func NewLocal() *Local {
	return &Local{locks: make(map[string]*entry)}
}

func (l *Local) Lock(ctx context.Context, threadID string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[threadID]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[threadID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(threadID, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(threadID, e)
		})
	}, nil
}

func (l *Local) release(threadID string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, threadID)
	}
}
