package processor

import (
	"context"
	"sync"
	"time"
)

// Locker serializes turns of the same conversation.
type Locker interface {
	Lock(ctx context.Context, conversationID string) (unlock func(), err error)
}

// KeyedMutex is an in-process Locker. Entries are dropped once no turn holds
// or waits on them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

func (k *KeyedMutex) Lock(ctx context.Context, id string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[id]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		k.locks[id] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(id, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.release(id, e)
		})
	}, nil
}

func (k *KeyedMutex) release(id string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, id)
	}
}

// Len returns the number of conversations currently locked or waited on.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// DistributedLocker takes conversation locks that hold across replicas.
type DistributedLocker interface {
	Lock(ctx context.Context, id string, ttl time.Duration) (func(), error)
}

// Distributed adapts a DistributedLocker such as store.Redis. ttl bounds how
// long a crashed replica can hold a conversation.
func Distributed(l DistributedLocker, ttl time.Duration) Locker {
	return distributed{l: l, ttl: ttl}
}

type distributed struct {
	l   DistributedLocker
	ttl time.Duration
}

func (d distributed) Lock(ctx context.Context, id string) (func(), error) {
	return d.l.Lock(ctx, id, d.ttl)
}
