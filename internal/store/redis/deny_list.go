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
	"errors"
	"strconv"
	"time"

	"github.com/memberhub/memberhub/internal/identity"
	goredis "github.com/redis/go-redis/v9"
)

// DenyList implements session.DenyList. Each key holds the unix second
// before which the principal's sessions are void, and expires with the
// longest session that could predate it.
type DenyList struct {
	base
}

// NewDenyList creates a Redis deny-list
func NewDenyList(client *goredis.Client, cfg Config) *DenyList {
	return &DenyList{base: newBase(client, cfg.Prefix, cfg.Timeout)}
}

func (d *DenyList) RevokeBefore(ctx context.Context, id identity.PrincipalID, at time.Time, ttl time.Duration) error {
	ctx, cancel := d.bound(ctx)
	defer cancel()
	return d.client.Set(ctx, d.key("revoked", string(id)), at.Unix(), ttl).Err()
}

func (d *DenyList) RevokedBefore(ctx context.Context, id identity.PrincipalID) (time.Time, bool, error) {
	ctx, cancel := d.bound(ctx)
	defer cancel()

	raw, err := d.client.Get(ctx, d.key("revoked", string(id))).Result()
	if errors.Is(err, goredis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(sec, 0).UTC(), true, nil
}
