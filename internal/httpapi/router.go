// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

// Package httpapi exposes the auth flow as a JSON HTTP API.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sessiond/sessiond/internal/apperror"
)

// Deps wires the router. Auth is required; the rest are optional.
type Deps struct {
	Auth        AuthService
	Uploader    *Uploader
	RateLimiter *RateLimiter
	Recorder    RequestRecorder
	Logger      *slog.Logger
	CORSOrigin  string
}

// NewRouter builds the API:
//
//	POST /api/signup, /api/login, /api/logout, /api/email, /api/password
//	GET  /api/users
//	POST /upload
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = noopRequestRecorder{}
	}
	origin := deps.CORSOrigin
	if origin == "" {
		origin = "*"
	}

	h := &authHandler{svc: deps.Auth}
	limited := deps.RateLimiter.Middleware

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(accessMiddleware(logger, recorder))
	r.Use(recoverMiddleware(logger))
	r.Use(corsMiddleware(origin))

	r.Route("/api", func(r chi.Router) {
		r.With(limited).Post("/signup", h.signup)
		r.With(limited).Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.Post("/email", h.changeEmail)
		r.With(limited).Post("/password", h.changePassword)
		r.Get("/users", h.listUsers)
	})

	if deps.Uploader != nil {
		r.Method(http.MethodPost, "/upload", deps.Uploader)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, apperror.NotFound(""))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: apperror.Record{
			Code:    apperror.CodeBadUserInput,
			Message: "Method not allowed",
		}})
	})

	return r
}
