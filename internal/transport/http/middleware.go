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

package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/memberhub/memberhub/internal/fault"
	"github.com/memberhub/memberhub/internal/observability/logger"
)

// Tenant context is never taken from headers. It comes from the verified
// session, and from explicit query or path parameters that the feature and
// membership services authorize against the caller.

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				attrs := []any{
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start)),
				}
				if p := GetPrincipal(r.Context()); p != nil {
					attrs = append(attrs, logger.PrincipalID(p.ID.String()))
				}
				slog.InfoContext(r.Context(), "http_request", attrs...)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// AuthMiddleware verifies the bearer session, reloads the membership and
// re-applies the authentication gate before the handler runs.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, string(fault.KindInvalidCredentials), "not authenticated")
			return
		}

		ctx, ok := h.authenticate(w, r, token)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuthMiddleware authenticates when a bearer token is present and
// passes anonymous requests through unchanged. A present but invalid token
// is still rejected.
func (h *Handler) OptionalAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx, ok := h.authenticate(w, r, token)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireGlobalAdmin rejects principals that may not administer the platform.
// Must run after AuthMiddleware.
func (h *Handler) RequireGlobalAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.engine.IsGlobalAdmin(GetPrincipal(r.Context())) {
			respondFault(w, r, fault.Permission("global administrator required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request, token string) (context.Context, bool) {
	claims, err := h.sessions.Verify(r.Context(), token)
	if err != nil {
		respondFault(w, r, err)
		return nil, false
	}

	m, err := h.engine.Membership(r.Context(), claims)
	if err != nil {
		respondFault(w, r, err)
		return nil, false
	}
	return withSession(r.Context(), m, claims), true
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
