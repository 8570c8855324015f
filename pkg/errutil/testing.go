// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessiond/sessiond/internal/apperror"
)

// AssertErrorCode asserts that err is an oops error with the given code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	assert.Equal(t, code, oopsErr.Code())
}

// AssertErrorContext asserts that err is an oops error with the given context key/value.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	ctx := oopsErr.Context()
	assert.Contains(t, ctx, key)
	assert.Equal(t, value, ctx[key])
}

// AssertAppError asserts that err classifies as code with the given field
// attribution. An empty field asserts that no field is attributed.
func AssertAppError(t *testing.T, err error, code apperror.Code, field string) {
	t.Helper()
	require.Error(t, err)
	rec := apperror.FromError(err)
	assert.Equal(t, code, rec.Code, "error: %v", err)
	assert.Equal(t, field, rec.Field, "error: %v", err)
}
