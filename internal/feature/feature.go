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

// Package feature resolves which product modules an association may use.
package feature

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/memberhub/memberhub/internal/fault"
)

// Key names a product module that can be toggled
type Key string

const (
	KeyMembers        Key = "members"
	KeyFinance        Key = "finance"
	KeyVoting         Key = "voting"
	KeyDocuments      Key = "documents"
	KeyEvents         Key = "events"
	KeyCommunications Key = "communications"
	KeyReports        Key = "reports"
	KeyMarketplace    Key = "marketplace"
)

// Keys is the closed set of feature keys, in display order
var Keys = []Key{
	KeyMembers,
	KeyFinance,
	KeyVoting,
	KeyDocuments,
	KeyEvents,
	KeyCommunications,
	KeyReports,
	KeyMarketplace,
}

// ParseKey accepts a known key in any case
func ParseKey(raw string) (Key, error) {
	k := Key(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Keys {
		if k == known {
			return k, nil
		}
	}
	return "", fault.Validation("unknown feature key %q", raw)
}

// Set maps feature keys to their enabled state
type Set map[Key]bool

// Clone returns an independent copy of s
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// String renders s as sorted key=value pairs
func (s Set) String() string {
	parts := make([]string, 0, len(s))
	for k, v := range s {
		parts = append(parts, fmt.Sprintf("%s=%t", k, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// BuiltinDefaults is the built-in default table used to seed the global set
// and to fill keys missing from stored sets.
func BuiltinDefaults() Set {
	return Set{
		KeyMembers:        true,
		KeyFinance:        true,
		KeyVoting:         true,
		KeyDocuments:      true,
		KeyEvents:         true,
		KeyCommunications: true,
		KeyReports:        true,
		KeyMarketplace:    false,
	}
}

// ParseDefaults applies host overrides such as "voting=false,marketplace=true"
// on top of the built-in table.
func ParseDefaults(raw string) (Set, error) {
	out := BuiltinDefaults()
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fault.Validation("feature default %q is not key=value", pair)
		}
		key, err := ParseKey(name)
		if err != nil {
			return nil, err
		}
		enabled, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return nil, fault.Validation("feature default %q has a non-boolean value", pair)
		}
		out[key] = enabled
	}
	return out, nil
}

// ValidateUpdates converts raw updates into a Set, rejecting unknown keys.
func ValidateUpdates(updates map[string]bool) (Set, error) {
	out := make(Set, len(updates))
	var unknown []string
	for raw, v := range updates {
		k, err := ParseKey(raw)
		if err != nil {
			unknown = append(unknown, raw)
			continue
		}
		out[k] = v
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fault.Validation("unknown feature keys: %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

// Resolve layers tenant over global over defaults, key by key.
func Resolve(tenant, global, defaults Set) Set {
	out := make(Set, len(Keys))
	for _, k := range Keys {
		if v, ok := tenant[k]; ok {
			out[k] = v
		} else if v, ok := global[k]; ok {
			out[k] = v
		} else {
			out[k] = defaults[k]
		}
	}
	return out
}
