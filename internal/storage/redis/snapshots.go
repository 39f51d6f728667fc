// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/Thermoquad/novaprobe/pkg/report"
	"github.com/redis/go-redis/v9"
)

// ErrNoSnapshot means no sweep has been stored for the port yet
var ErrNoSnapshot = errors.New("no snapshot stored")

// HistoryLength bounds the per-port snapshot history list
const HistoryLength = 72

// SnapshotStore keeps the latest snapshot per port, a bounded history, and
// publishes every save on the snapshots channel
type SnapshotStore struct {
	client *Client
}

// NewSnapshotStore creates a store on client
func NewSnapshotStore(client *Client) *SnapshotStore {
	return &SnapshotStore{client: client}
}

// Channel is the pub/sub channel saves are published on
func (s *SnapshotStore) Channel() string {
	return s.client.Key("snapshots")
}

func (s *SnapshotStore) latestKey(port string) string {
	return s.client.Key("snapshot", "latest", port)
}

func (s *SnapshotStore) historyKey(port string) string {
	return s.client.Key("snapshot", "history", port)
}

// Save stores snap as the latest for its port and publishes it
func (s *SnapshotStore) Save(ctx context.Context, snap *report.Snapshot) error {
	data, err := report.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.latestKey(snap.Port), data, 0)
		p.LPush(ctx, s.historyKey(snap.Port), data)
		p.LTrim(ctx, s.historyKey(snap.Port), 0, HistoryLength-1)
		p.Publish(ctx, s.Channel(), data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// Latest returns the last snapshot saved for port
func (s *SnapshotStore) Latest(ctx context.Context, port string) (*report.Snapshot, error) {
	data, err := s.client.Get(ctx, s.latestKey(port)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return report.Unmarshal(data)
}

// History returns up to n snapshots for port, newest first
func (s *SnapshotStore) History(ctx context.Context, port string, n int) ([]*report.Snapshot, error) {
	if n <= 0 || n > HistoryLength {
		n = HistoryLength
	}
	items, err := s.client.LRange(ctx, s.historyKey(port), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	out := make([]*report.Snapshot, 0, len(items))
	for _, item := range items {
		snap, err := report.Unmarshal([]byte(item))
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// Subscribe delivers every snapshot published until ctx is done. Messages
// that fail to decode are skipped.
func (s *SnapshotStore) Subscribe(ctx context.Context) <-chan *report.Snapshot {
	sub := s.client.Subscribe(ctx, s.Channel())
	out := make(chan *report.Snapshot)

	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				snap, err := report.Unmarshal([]byte(msg.Payload))
				if err != nil {
					continue
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
