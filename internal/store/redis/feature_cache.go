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

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/memberhub/memberhub/internal/feature"
	goredis "github.com/redis/go-redis/v9"
)

// putIfNewer stores an entry unless the cached one carries a higher version.
// KEYS[1] cache key; ARGV[1] version, ARGV[2] encoded entry, ARGV[3] ttl in ms.
var putIfNewer = goredis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'v')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// FeatureCache implements feature.Cache. Entries are hashes holding the
// row version and the encoded entry.
type FeatureCache struct {
	base
	ttl time.Duration
}

// NewFeatureCache creates a cache whose entries live for ttl
func NewFeatureCache(client *goredis.Client, cfg Config, ttl time.Duration) *FeatureCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &FeatureCache{base: newBase(client, cfg.Prefix, cfg.Timeout), ttl: ttl}
}

func (c *FeatureCache) Get(ctx context.Context, scope feature.Scope) (feature.Entry, bool, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	raw, err := c.client.HGet(ctx, c.key("features", string(scope)), "data").Bytes()
	if errors.Is(err, goredis.Nil) {
		return feature.Entry{}, false, nil
	}
	if err != nil {
		return feature.Entry{}, false, err
	}
	var entry feature.Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return feature.Entry{}, false, fmt.Errorf("corrupt feature cache entry: %w", err)
	}
	return entry, true, nil
}

// Put stores entry unless a newer version is already cached
func (c *FeatureCache) Put(ctx context.Context, scope feature.Scope, entry feature.Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()
	keys := []string{c.key("features", string(scope))}
	return putIfNewer.Run(ctx, c.client, keys, entry.Version, raw, c.ttl.Milliseconds()).Err()
}

func (c *FeatureCache) Invalidate(ctx context.Context, scope feature.Scope) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.client.Del(ctx, c.key("features", string(scope))).Err()
}
