// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/sessiond/sessiond/internal/apperror"
)

// CodeRateLimited is a transport-only code for throttled requests. It is not
// part of the auth error taxonomy.
const CodeRateLimited apperror.Code = "RATE_LIMITED"

const rateLimitedMessage = "Too many requests. Please try again later."

// errorBody is the JSON envelope of every failed request.
type errorBody struct {
	Error apperror.Record `json:"error"`
}

// StatusFor maps a taxonomy code to an HTTP status.
func StatusFor(code apperror.Code) int {
	switch code {
	case apperror.CodeBadUserInput:
		return http.StatusBadRequest
	case apperror.CodeForbidden, apperror.CodeTokenInvalid:
		return http.StatusUnauthorized
	case apperror.CodeNotFound:
		return http.StatusNotFound
	case apperror.CodeDuplicateEntry, apperror.CodeAlreadyAuthenticated:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect
	json.NewEncoder(w).Encode(v)
}

// writeError classifies err and writes it with the mapped status.
func writeError(w http.ResponseWriter, err error) {
	rec := apperror.FromError(err)
	writeJSON(w, StatusFor(rec.Code), errorBody{Error: rec})
}

func writeRecord(w http.ResponseWriter, status int, rec apperror.Record) {
	writeJSON(w, status, errorBody{Error: rec})
}
