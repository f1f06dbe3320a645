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

// Package fault defines the error taxonomy shared by the authentication,
// membership and feature authorization services.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and for the transport layer.
type Kind string

const (
	KindInvalidCredentials Kind = "invalid_credentials"
	KindAccountBlocked     Kind = "account_blocked"
	KindTenantInactive     Kind = "tenant_inactive"
	KindInvalidMFACode     Kind = "invalid_mfa_code"
	KindPermission         Kind = "permission_denied"
	KindValidation         Kind = "validation_failed"
	KindNotFound           Kind = "not_found"
	KindTransient          Kind = "transient"
	KindInternal           Kind = "internal"
)

// Error is a classified domain error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrPermission)
// holds for every permission failure regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Credential failures share one value so that callers cannot tell an unknown
// email from a wrong password.
var ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "invalid email or password"}

// Kind-only sentinels for errors.Is checks.
var (
	ErrAccountBlocked = &Error{Kind: KindAccountBlocked}
	ErrTenantInactive = &Error{Kind: KindTenantInactive}
	ErrInvalidMFACode = &Error{Kind: KindInvalidMFACode}
	ErrPermission     = &Error{Kind: KindPermission}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrTransient      = &Error{Kind: KindTransient}
)

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation reports malformed input.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Permission reports a caller lacking rights for a management action.
func Permission(format string, args ...any) *Error {
	return &Error{Kind: KindPermission, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Transient wraps a store, cache or signing failure that is safe to retry.
// Already-classified errors pass through unchanged.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	return &Error{Kind: KindTransient, Message: "dependency unavailable, retry later", Err: err}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
