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

// Package mfa implements the second authentication factor.
package mfa

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/memberhub/memberhub/internal/identity"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// DefaultStaticCode is the code accepted by the development verifier
const DefaultStaticCode = "123456"

// Verifier checks a one-time code against a principal's stored secret
type Verifier interface {
	Verify(secret, code string) bool
}

// TOTPVerifier validates RFC 6238 codes (30s period, 6 digits, SHA1) with
// one step of clock skew either side.
type TOTPVerifier struct {
	now func() time.Time
}

// NewTOTPVerifier creates a new TOTP verifier
func NewTOTPVerifier() *TOTPVerifier {
	return &TOTPVerifier{now: time.Now}
}

func (v *TOTPVerifier) Verify(secret, code string) bool {
	if secret == "" {
		return false
	}
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, v.now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// StaticVerifier accepts one fixed code for every principal. Development and
// test deployments only.
type StaticVerifier struct {
	Code string
}

func (v StaticVerifier) Verify(_, code string) bool {
	want := v.Code
	if want == "" {
		want = DefaultStaticCode
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(code)), []byte(want)) == 1
}

// Challenge decides whether a principal needs a second factor and checks it
type Challenge struct {
	verifier Verifier
}

// NewChallenge creates a challenge backed by verifier
func NewChallenge(verifier Verifier) *Challenge {
	return &Challenge{verifier: verifier}
}

// IsRequired reports whether p must present a code
func (c *Challenge) IsRequired(p *identity.Principal) bool {
	return p != nil && p.MFAEnabled
}

// Verify checks code for p. An empty code never verifies.
func (c *Challenge) Verify(p *identity.Principal, code string) bool {
	if p == nil || strings.TrimSpace(code) == "" {
		return false
	}
	return c.verifier.Verify(p.MFASecret, code)
}
