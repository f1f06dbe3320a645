// Copyright 2026 The Memberhub Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package redis holds the Redis-backed feature cache and session deny-list.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Config holds Redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
	// Timeout bounds every command
	Timeout time.Duration
	// Prefix namespaces every key
	Prefix string
}

// NewClient connects and pings Redis
func NewClient(ctx context.Context, cfg Config) (*goredis.Client, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     strings.TrimSpace(cfg.Password),
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

type base struct {
	client  *goredis.Client
	prefix  string
	timeout time.Duration
}

func newBase(client *goredis.Client, prefix string, timeout time.Duration) base {
	if prefix == "" {
		prefix = "memberhub"
	}
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return base{client: client, prefix: prefix, timeout: timeout}
}

func (b base) key(parts ...string) string {
	return b.prefix + ":" + strings.Join(parts, ":")
}

func (b base) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.timeout)
}
