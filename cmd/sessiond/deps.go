// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

package main

import (
	"context"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sessiond/sessiond/internal/store"
)

// Database is the subset of *pgxpool.Pool serve uses.
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Migrator is the subset of *store.Migrator the CLI uses.
type Migrator interface {
	Up() error
	Down() error
	Force(version int) error
	Status() (store.Status, error)
	Close() error
}

// ServeDeps holds injectable dependencies for serve. Nil fields use the
// production implementation.
type ServeDeps struct {
	// OpenDatabase creates a pool. Default: store.NewPool.
	OpenDatabase func(ctx context.Context, url string) (Database, error)

	// NewMigrator opens a migrator. Default: store.NewMigrator.
	NewMigrator func(url string) (Migrator, error)

	// DialBackoff is the first retry delay when waiting for Redis and
	// PostgreSQL. Default: 500ms.
	DialBackoff time.Duration

	// DialRetries bounds the retries per dependency. Default: 5.
	DialRetries uint64

	// LogWriter receives log output. Default: stderr.
	LogWriter io.Writer

	// OnReady is called with the API address once serve is accepting
	// requests.
	OnReady func(apiAddr, metricsAddr string)
}

// MigrateDeps holds injectable dependencies for migrate.
type MigrateDeps struct {
	NewMigrator func(url string) (Migrator, error)
}

func defaultNewMigrator(url string) (Migrator, error) {
	return store.NewMigrator(url)
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.OpenDatabase == nil {
		out.OpenDatabase = func(ctx context.Context, url string) (Database, error) {
			return store.NewPool(ctx, url)
		}
	}
	if out.NewMigrator == nil {
		out.NewMigrator = defaultNewMigrator
	}
	if out.DialBackoff <= 0 {
		out.DialBackoff = 500 * time.Millisecond
	}
	if out.DialRetries == 0 {
		out.DialRetries = 5
	}
	return &out
}
