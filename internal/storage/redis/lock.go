// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/novaprobe/internal/portlock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRetry is the polling interval of a blocking Lock
const DefaultRetry = 250 * time.Millisecond

// releaseScript deletes the lock only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// PortLock is a portlock.Locker shared by every process using the same
// Redis. A holder that dies loses the lock after ttl.
type PortLock struct {
	client *Client
	ttl    time.Duration
	retry  time.Duration
}

var _ portlock.Locker = (*PortLock)(nil)

// NewPortLock creates a lock with the given expiry
func NewPortLock(client *Client, ttl time.Duration) *PortLock {
	return &PortLock{client: client, ttl: ttl, retry: DefaultRetry}
}

func (l *PortLock) key(port string) string {
	return l.client.Key("lock", port)
}

// TryLock implements portlock.Locker
func (l *PortLock) TryLock(ctx context.Context, port string) (portlock.Unlock, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key(port), token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", port, err)
	}
	if !ok {
		return nil, portlock.ErrLocked
	}

	key := l.key(port)
	return func() error {
		// The caller's ctx may be done by the time it releases
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("unlock %s: %w", port, err)
		}
		return nil
	}, nil
}

// Lock implements portlock.Locker, polling until the lock is free
func (l *PortLock) Lock(ctx context.Context, port string) (portlock.Unlock, error) {
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		unlock, err := l.TryLock(ctx, port)
		if !errors.Is(err, portlock.ErrLocked) {
			return unlock, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
