package payments

import (
	"context"
	"sync"
)

// localLocker is the in-process CaptureLocker used when no Redis locker is configured.
type localLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func newLocalLocker() *localLocker {
	return &localLocker{slots: make(map[string]*lockSlot)}
}

func (l *localLocker) Lock(ctx context.Context, id string) (func(context.Context) error, error) {
	l.mu.Lock()
	slot, ok := l.slots[id]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[id] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(id, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-slot.ch
			l.drop(id, slot)
		})
		return nil
	}, nil
}

func (l *localLocker) drop(id string, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, id)
	}
}
