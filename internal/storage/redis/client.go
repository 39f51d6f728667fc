// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package redis shares sweep snapshots and port locks between novaprobe
// processes through Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/novaprobe/internal/config"
	"github.com/redis/go-redis/v9"
)

// ErrDisabled is returned by NewClient when redis.enabled is false
var ErrDisabled = errors.New("redis is not enabled")

// Client wraps the go-redis client with the configured key prefix
type Client struct {
	*redis.Client
	prefix string
}

// NewClient connects and pings the configured server
func NewClient(cfg config.RedisConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return Wrap(rdb, cfg.KeyPrefix), nil
}

// Wrap uses an existing go-redis client
func Wrap(rdb *redis.Client, prefix string) *Client {
	return &Client{Client: rdb, prefix: prefix}
}

// Key prefixes parts with the configured namespace
func (c *Client) Key(parts ...string) string {
	key := c.prefix
	for i, p := range parts {
		if i > 0 {
			key += ":"
		}
		key += p
	}
	return key
}

// Close closes the connection pool
func (c *Client) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// HealthCheck pings the server
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
