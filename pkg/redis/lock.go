package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
)

// ErrLockLost is returned on release when the mutex expired before it was unlocked.
var ErrLockLost = errors.New("redis lock expired before release")

// Locker hands out per-key distributed mutexes backed by redsync.
type Locker struct {
	rs     *redsync.Redsync
	keys   *Client
	scope  string
	expiry time.Duration
	tries  int
}

// NewLocker builds a Locker whose keys live under the given scope.
func NewLocker(client *Client, scope string, expiry time.Duration, tries int) (*Locker, error) {
	if client == nil || client.Raw() == nil {
		return nil, errNotInitialized
	}
	if expiry <= 0 {
		expiry = 30 * time.Second
	}
	if tries <= 0 {
		tries = 32
	}
	pool := goredis.NewPool(client.Raw())
	return &Locker{
		rs:     redsync.New(pool),
		keys:   client,
		scope:  scope,
		expiry: expiry,
		tries:  tries,
	}, nil
}

// Lock blocks until the mutex for id is held or ctx is done. The returned
// release function must be called exactly once.
func (l *Locker) Lock(ctx context.Context, id string) (func(context.Context) error, error) {
	name := l.keys.LockKey(l.scope, id)
	mutex := l.rs.NewMutex(name,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(l.tries),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("acquire %s: %w", name, err)
	}
	return func(ctx context.Context) error {
		ok, err := mutex.UnlockContext(ctx)
		if err != nil {
			return fmt.Errorf("release %s: %w", name, err)
		}
		if !ok {
			return ErrLockLost
		}
		return nil
	}, nil
}
