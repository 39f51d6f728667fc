// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Thermoquad/novaprobe/internal/config"
	"github.com/Thermoquad/novaprobe/internal/portlock"
	"github.com/Thermoquad/novaprobe/pkg/report"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient connects to NOVAPROBE_TEST_REDIS and skips without it
func testClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("NOVAPROBE_TEST_REDIS")
	if addr == "" {
		t.Skip("NOVAPROBE_TEST_REDIS not set")
	}
	c, err := NewClient(config.RedisConfig{
		Enabled:   true,
		Addr:      addr,
		KeyPrefix: "novaprobe-test:" + uuid.NewString() + ":",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		keys, _ := c.Keys(context.Background(), c.Key("*")).Result()
		if len(keys) > 0 {
			c.Del(context.Background(), keys...)
		}
		_ = c.Close()
	})
	return c
}

func TestNewClient_Disabled(t *testing.T) {
	_, err := NewClient(config.RedisConfig{})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestClient_Key(t *testing.T) {
	c := Wrap(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "novaprobe:")
	defer c.Close()

	assert.Equal(t, "novaprobe:lock:/dev/ttyUSB0", c.Key("lock", "/dev/ttyUSB0"))
	assert.Equal(t, "novaprobe:snapshots", NewSnapshotStore(c).Channel())
}

func TestSnapshotStore(t *testing.T) {
	c := testClient(t)
	store := NewSnapshotStore(c)
	ctx := context.Background()

	_, err := store.Latest(ctx, "/dev/ttyUSB0")
	assert.ErrorIs(t, err, ErrNoSnapshot)

	sub := store.Subscribe(ctx)
	// Let the subscription register before publishing
	time.Sleep(100 * time.Millisecond)

	for _, id := range []string{"run-1", "run-2"} {
		snap := &report.Snapshot{RunID: id, Port: "/dev/ttyUSB0", Found: true}
		snap.Evaluate(0)
		require.NoError(t, store.Save(ctx, snap))
	}

	latest, err := store.Latest(ctx, "/dev/ttyUSB0")
	require.NoError(t, err)
	assert.Equal(t, "run-2", latest.RunID)

	history, err := store.History(ctx, "/dev/ttyUSB0", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "run-2", history[0].RunID)

	select {
	case snap := <-sub:
		assert.Equal(t, "run-1", snap.RunID)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot published")
	}
}

func TestPortLock(t *testing.T) {
	c := testClient(t)
	lock := NewPortLock(c, time.Minute)
	ctx := context.Background()

	unlock, err := lock.TryLock(ctx, "/dev/ttyUSB0")
	require.NoError(t, err)

	_, err = lock.TryLock(ctx, "/dev/ttyUSB0")
	assert.ErrorIs(t, err, portlock.ErrLocked)

	waitCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = lock.Lock(waitCtx, "/dev/ttyUSB0")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock())
	again, err := lock.Lock(ctx, "/dev/ttyUSB0")
	require.NoError(t, err)
	require.NoError(t, again())
}

func TestPortLock_ReleaseKeepsForeignToken(t *testing.T) {
	c := testClient(t)
	lock := NewPortLock(c, time.Minute)
	ctx := context.Background()

	unlock, err := lock.TryLock(ctx, "p")
	require.NoError(t, err)

	// Simulate expiry and another holder taking over
	require.NoError(t, c.Set(ctx, c.Key("lock", "p"), "other", time.Minute).Err())
	require.NoError(t, unlock())

	val, err := c.Get(ctx, c.Key("lock", "p")).Result()
	require.NoError(t, err)
	assert.Equal(t, "other", val)
}
