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

// Package http exposes the membership, authentication and feature services
// over a JSON API.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/memberhub/memberhub/internal/audit"
	"github.com/memberhub/memberhub/internal/authz"
	"github.com/memberhub/memberhub/internal/fault"
	"github.com/memberhub/memberhub/internal/feature"
	"github.com/memberhub/memberhub/internal/identity"
	"github.com/memberhub/memberhub/internal/mfa"
	"github.com/memberhub/memberhub/internal/observability/logger"
	"github.com/memberhub/memberhub/internal/session"
	"github.com/memberhub/memberhub/internal/tenant"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxBodyBytes = 1 << 20

// Handler holds HTTP handlers and dependencies
type Handler struct {
	engine          *authz.Engine
	identityService *identity.Service
	tenantService   *tenant.Service
	features        *feature.Store
	mfaService      *mfa.Service
	sessions        *session.Issuer
	auditLogger     audit.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	engine *authz.Engine,
	identityService *identity.Service,
	tenantService *tenant.Service,
	features *feature.Store,
	mfaService *mfa.Service,
	sessions *session.Issuer,
	auditLogger audit.Logger,
) *Handler {
	return &Handler{
		engine:          engine,
		identityService: identityService,
		tenantService:   tenantService,
		features:        features,
		mfaService:      mfaService,
		sessions:        sessions,
		auditLogger:     auditLogger,
	}
}

// NewRouter creates a new HTTP router. The rate limiter guards the
// unauthenticated credential endpoints.
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(rateLimiter))
			r.Post("/auth/identify", h.Identify)
			r.Post("/auth/login", h.Login)
			r.Post("/auth/register", h.Register)
		})

		r.With(h.OptionalAuthMiddleware).Get("/features", h.GetFeatures)

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Get("/auth/me", h.GetCurrentMember)
			r.Post("/auth/mfa/enroll", h.EnrollMFA)
			r.Post("/auth/mfa/confirm", h.ConfirmMFA)
			r.Delete("/auth/mfa", h.DisableMFA)

			r.Put("/features", h.PutFeatures)
			r.Get("/features/{key}/access", h.FeatureAccess)

			r.Route("/members/{memberID}", func(r chi.Router) {
				r.Get("/", h.GetMember)
				r.Post("/approve", h.ApproveMember)
				r.Post("/reject", h.RejectMember)
				r.Post("/suspend", h.SuspendMember)
				r.Post("/reinstate", h.ReinstateMember)
			})

			r.Route("/tenants", func(r chi.Router) {
				r.Use(h.RequireGlobalAdmin)
				r.Post("/", h.CreateTenant)
				r.Get("/", h.ListTenants)
				r.Route("/{tenantID}", func(r chi.Router) {
					r.Get("/", h.GetTenant)
					r.Put("/status", h.SetTenantStatus)
					r.Put("/branding", h.UpdateTenantBranding)
					r.Put("/contact", h.UpdateTenantContact)
					r.Get("/members", h.ListMembers)
				})
			})
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "memberhub",
	})
}

// statusFor maps an error kind to its HTTP status. This is the only place
// the mapping lives.
func statusFor(kind fault.Kind) int {
	switch kind {
	case fault.KindInvalidCredentials, fault.KindInvalidMFACode:
		return http.StatusUnauthorized
	case fault.KindAccountBlocked, fault.KindTenantInactive, fault.KindPermission:
		return http.StatusForbidden
	case fault.KindValidation:
		return http.StatusBadRequest
	case fault.KindNotFound:
		return http.StatusNotFound
	case fault.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondFault writes err as an error body. Unclassified errors are logged
// and reported without detail.
func respondFault(w http.ResponseWriter, r *http.Request, err error) {
	kind := fault.KindOf(err)
	status := statusFor(kind)

	message := "internal error"
	var fe *fault.Error
	if errors.As(err, &fe) && kind != fault.KindInternal {
		message = fe.Message
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			logger.Path(r.URL.Path),
			logger.ErrorKind(string(kind)),
			logger.Error(err),
		)
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	respondError(w, status, string(kind), message)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}

// decodeJSON reads a bounded JSON body into dst. An empty body leaves dst
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, string(fault.KindValidation), "invalid request body")
		return false
	}
	return true
}
