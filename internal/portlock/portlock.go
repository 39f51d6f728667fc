// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package portlock serialises access to a serial port across goroutines and,
// through a Locker backed by shared storage, across processes.
package portlock

import (
	"context"
	"errors"
	"sync"
)

// ErrLocked is returned by TryLock when another holder owns the port
var ErrLocked = errors.New("port locked")

// Unlock releases a held port
type Unlock func() error

// Locker grants exclusive use of a port
type Locker interface {
	// Lock blocks until the port is free or ctx is done
	Lock(ctx context.Context, port string) (Unlock, error)
	// TryLock returns ErrLocked instead of waiting
	TryLock(ctx context.Context, port string) (Unlock, error)
}

// Local is an in-process Locker with one slot per port
type Local struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocal creates an empty in-process Locker
func NewLocal() *Local {
	return &Local{slots: make(map[string]chan struct{})}
}

func (l *Local) slot(port string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[port]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[port] = s
	}
	return s
}

// Lock implements Locker
func (l *Local) Lock(ctx context.Context, port string) (Unlock, error) {
	s := l.slot(port)
	select {
	case s <- struct{}{}:
		return release(s), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryLock implements Locker
func (l *Local) TryLock(_ context.Context, port string) (Unlock, error) {
	s := l.slot(port)
	select {
	case s <- struct{}{}:
		return release(s), nil
	default:
		return nil, ErrLocked
	}
}

func release(s chan struct{}) Unlock {
	var once sync.Once
	return func() error {
		once.Do(func() { <-s })
		return nil
	}
}

// Chain takes every locker in order, releasing what it holds when a later
// one fails. Unlock releases in reverse order.
type Chain []Locker

// Lock implements Locker
func (c Chain) Lock(ctx context.Context, port string) (Unlock, error) {
	return c.acquire(ctx, port, Locker.Lock)
}

// TryLock implements Locker
func (c Chain) TryLock(ctx context.Context, port string) (Unlock, error) {
	return c.acquire(ctx, port, Locker.TryLock)
}

func (c Chain) acquire(ctx context.Context, port string, take func(Locker, context.Context, string) (Unlock, error)) (Unlock, error) {
	held := make([]Unlock, 0, len(c))
	releaseAll := func() error {
		var errs []error
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	for _, l := range c {
		u, err := take(l, ctx, port)
		if err != nil {
			_ = releaseAll()
			return nil, err
		}
		held = append(held, u)
	}
	return releaseAll, nil
}
