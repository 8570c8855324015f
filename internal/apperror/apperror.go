// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

// Package apperror defines the canonical failure taxonomy surfaced to the
// request layer.
//
// Every failure leaving the auth core is an *Error carrying a stable Code, a
// human message and an optional field attribution. The transport boundary
// converts any error into a Record with FromError; errors that are not an
// *Error are classified as INTERNAL_ERROR and their detail is never exposed.
package apperror

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable failure identifier.
type Code string

// Failure codes.
const (
	CodeDuplicateEntry       Code = "DUPLICATE_ENTRY"
	CodeNotFound             Code = "NOT_FOUND"
	CodeBadUserInput         Code = "BAD_USER_INPUT"
	CodeForbidden            Code = "FORBIDDEN"
	CodeAlreadyAuthenticated Code = "ALREADY_AUTHENTICATED"
	CodeTokenInvalid         Code = "TOKEN_INVALID"
	CodeInternal             Code = "INTERNAL_ERROR"
)

var defaultMessages = map[Code]string{
	CodeDuplicateEntry:       "Provided entry already exists. Please ensure unique fields are changed",
	CodeNotFound:             "Query not found",
	CodeBadUserInput:         "Provided input is not valid or does not match.",
	CodeForbidden:            "Either you haven't logged in or the authentication has expired. Please login to continue",
	CodeAlreadyAuthenticated: "User is already logged in.",
	CodeTokenInvalid:         "Token invalid or expired",
	CodeInternal:             "Server encountered an unexpected error",
}

// Message returns the default human-readable message for the code.
func (c Code) Message() string {
	if msg, ok := defaultMessages[c]; ok {
		return msg
	}
	return defaultMessages[CodeInternal]
}

// Known reports whether c is part of the taxonomy.
func (c Code) Known() bool {
	_, ok := defaultMessages[c]
	return ok
}

// Error is a classified failure. It is immutable once constructed; the With*
// methods return modified copies.
type Error struct {
	Code    Code
	Message string
	Field   string
	cause   error
}

// New creates an Error with the code's default message.
func New(code Code) *Error {
	return &Error{Code: code, Message: code.Message()}
}

// Error implements error. The cause is included for logs only; it never
// reaches a Record.
func (e *Error) Error() string {
	var s string
	if e.Field != "" {
		s = fmt.Sprintf("%s (%s): %s", e.Code, e.Field, e.Message)
	} else {
		s = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// WithField returns a copy attributed to the named input field.
func (e *Error) WithField(field string) *Error {
	c := *e
	c.Field = field
	return &c
}

// WithMessage returns a copy with a replaced human message.
func (e *Error) WithMessage(msg string) *Error {
	c := *e
	c.Message = msg
	return &c
}

// WithCause returns a copy recording cause for logging and errors.Is.
func (e *Error) WithCause(cause error) *Error {
	c := *e
	c.cause = cause
	return &c
}

// Record returns the boundary representation of the error.
func (e *Error) Record() Record {
	return Record{Code: e.Code, Message: e.Message, Field: e.Field}
}

// DuplicateEntry reports a uniqueness violation on field.
func DuplicateEntry(field string) *Error {
	return New(CodeDuplicateEntry).WithField(field)
}

// NotFound reports that a referenced resource does not exist.
func NotFound(field string) *Error {
	return New(CodeNotFound).WithField(field)
}

// BadUserInput reports invalid input. An empty field means the failure must
// not be attributed to a specific input (credential mismatches).
func BadUserInput(field string) *Error {
	return New(CodeBadUserInput).WithField(field)
}

// NotAuthenticated reports that no valid session is present.
func NotAuthenticated() *Error {
	return New(CodeForbidden)
}

// AlreadyAuthenticated reports a login attempt while a session is live.
func AlreadyAuthenticated() *Error {
	return New(CodeAlreadyAuthenticated)
}

// TokenInvalid reports a token that failed verification.
func TokenInvalid() *Error {
	return New(CodeTokenInvalid).WithField("token")
}

// Internal wraps an unexpected failure. The message stays generic.
func Internal(cause error) *Error {
	return New(CodeInternal).WithCause(cause)
}

// Record is the immutable {code, message, field} value handed to the
// transport.
type Record struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// FromError classifies err. Unclassified errors become INTERNAL_ERROR with
// the generic message.
func FromError(err error) Record {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Code.Known() {
		rec := appErr.Record()
		if appErr.Code == CodeInternal {
			rec.Message = CodeInternal.Message()
			rec.Field = ""
		}
		return rec
	}
	return New(CodeInternal).Record()
}

// CodeOf returns the taxonomy code of err, or CodeInternal.
func CodeOf(err error) Code {
	return FromError(err).Code
}

// Is reports whether err classifies as code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
