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

package config

import (
	"net/netip"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberhub/memberhub/internal/feature"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// TestPurpose: Validates the defaults applied when only the signing secret is provided.
// Scope: Unit Test
// Security: Session horizon and decision timeout defaults
// Expected: Sessions last 8h, decisions time out after 5s, MFA uses TOTP and the in-memory store is selected.
// Test Case ID: CFG-01
func TestFromViper_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 8*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 5*time.Second, cfg.Auth.DecisionTimeout)
	assert.Equal(t, MFAModeTOTP, cfg.MFA.Mode)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.False(t, cfg.Database.Enabled())
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.RateLimit.TrustedProxies)
	assert.Equal(t, feature.BuiltinDefaults(), cfg.Features.Defaults)
}

// TestPurpose: Validates environment overrides for auth, feature defaults and storage.
// Scope: Unit Test
// Security: Host-controlled bootstrap administrator id
// Expected: Environment values replace defaults; feature overrides apply on top of the built-in table.
// Test Case ID: CFG-02
func TestFromViper_Overrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("AUTH_SESSION_TTL", "2h")
	t.Setenv("AUTH_BOOTSTRAP_PRINCIPAL_ID", "77")
	t.Setenv("FEATURES_DEFAULTS", "voting=false, marketplace=true")
	t.Setenv("MFA_MODE", "STATIC")
	t.Setenv("DATABASE_URL", "postgres://memberhub@localhost/memberhub")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RATELIMIT_TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.10")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "77", cfg.Auth.BootstrapPrincipalID)
	assert.False(t, cfg.Features.Defaults[feature.KeyVoting])
	assert.True(t, cfg.Features.Defaults[feature.KeyMarketplace])
	assert.True(t, cfg.Features.Defaults[feature.KeyMembers])
	assert.Equal(t, MFAModeStatic, cfg.MFA.Mode)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.168.1.10/32"),
	}, cfg.RateLimit.TrustedProxies)
}

// TestPurpose: Validates that invalid configuration is rejected at load time.
// Scope: Unit Test
// Security: Fail closed on missing or weak signing secrets
// Expected: Each invalid setting produces an error.
// Test Case ID: CFG-03
func TestFromViper_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{}},
		{"short secret", map[string]string{"AUTH_JWT_SECRET": "short"}},
		{"unknown feature default", map[string]string{"AUTH_JWT_SECRET": testSecret, "FEATURES_DEFAULTS": "chat=true"}},
		{"non-boolean feature default", map[string]string{"AUTH_JWT_SECRET": testSecret, "FEATURES_DEFAULTS": "voting=maybe"}},
		{"unknown mfa mode", map[string]string{"AUTH_JWT_SECRET": testSecret, "MFA_MODE": "sms"}},
		{"db host without password", map[string]string{"AUTH_JWT_SECRET": testSecret, "DB_HOST": "db"}},
		{"malformed trusted proxy", map[string]string{"AUTH_JWT_SECRET": testSecret, "RATELIMIT_TRUSTED_PROXIES": "10.0.0.0/33"}},
		{"bootstrap without password", map[string]string{"AUTH_JWT_SECRET": testSecret, "BOOTSTRAP_ADMIN_EMAIL": "root@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AUTH_JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromViper(viper.New())
			assert.Error(t, err)
		})
	}
}
