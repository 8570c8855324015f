// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/sessiond/sessiond/internal/apperror"
	"github.com/sessiond/sessiond/internal/auth"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// AuthService is the auth flow the handlers drive. *auth.Service implements it.
type AuthService interface {
	Signup(ctx context.Context, email, password string) (*auth.Response, error)
	Login(ctx context.Context, bearer, email, password string) (*auth.Response, error)
	Logout(ctx context.Context, bearer string) (*auth.Response, error)
	ChangeEmail(ctx context.Context, bearer, newEmail string) (*auth.Response, error)
	ChangePassword(ctx context.Context, bearer, oldPassword, newPassword string) (*auth.Response, error)
	ListUsers(ctx context.Context, bearer string) (*auth.Response, error)
}

var _ AuthService = (*auth.Service)(nil)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changeEmailRequest struct {
	Email string `json:"email"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type authHandler struct {
	svc AuthService
}

func bearer(r *http.Request) string {
	return r.Header.Get("Authorization")
}

// decode reads a JSON body into v. Malformed bodies are BAD_USER_INPUT
// without a field.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && err != io.EOF {
		writeError(w, apperror.BadUserInput(""))
		return false
	}
	return true
}

func (h *authHandler) respond(w http.ResponseWriter, resp *auth.Response, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *authHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Signup(r.Context(), req.Email, req.Password)
	h.respond(w, resp, err)
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Login(r.Context(), bearer(r), req.Email, req.Password)
	h.respond(w, resp, err)
}

func (h *authHandler) logout(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Logout(r.Context(), bearer(r))
	h.respond(w, resp, err)
}

func (h *authHandler) changeEmail(w http.ResponseWriter, r *http.Request) {
	var req changeEmailRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.ChangeEmail(r.Context(), bearer(r), req.Email)
	h.respond(w, resp, err)
}

func (h *authHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.ChangePassword(r.Context(), bearer(r), req.OldPassword, req.NewPassword)
	h.respond(w, resp, err)
}

func (h *authHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.ListUsers(r.Context(), bearer(r))
	h.respond(w, resp, err)
}
