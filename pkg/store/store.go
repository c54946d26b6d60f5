/*
Copyright 2024 DataInfraPilot Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package store implements the persistence layer (C1): transactional CRUD
// for clusters, pools, deployments, endpoints, volumes and volume
// bindings, backed by PostgreSQL via sqlx and lib/pq.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rubenv/sql-migrate"

	_ "github.com/lib/pq" // registers the "postgres" sql driver
)

var (
	// ErrNotFound is returned when a lookup by ID finds nothing.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned on a unique-constraint violation (spec §4.1).
	ErrConflict = errors.New("conflict")
)

// Options configures a connection to the backing database.
type Options struct {
	DSN string
}

// AddFlags registers the store's command line flags.
func (o *Options) AddFlags(f FlagSet) {
	f.StringVar(&o.DSN, "store-dsn", "postgres://localhost/datainfrapilot?sslmode=disable", "PostgreSQL connection string")
}

// FlagSet is the subset of pflag.FlagSet Options needs; kept minimal so
// this file doesn't import pflag directly (pkg/config wires the real one).
type FlagSet interface {
	StringVar(p *string, name string, value string, usage string)
}

// Store wraps a database connection. Every write of a tracked entity's
// (status, error) pair happens atomically with any dependent field update,
// per spec §4.1.
type Store struct {
	db *sqlx.DB
}

// New opens a connection pool against the given options and verifies
// connectivity.
func New(ctx context.Context, opts Options) (*Store, error) {
	db, err := sqlx.Open("postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging store: %w", err)
	}

	return &Store{db: db}, nil
}

// Migrate applies every pending schema migration (C1's migration
// ownership, spec §6: "migrations are owned by C1").
func (s *Store) Migrate() error {
	migrations := &migrate.MemoryMigrationSource{Migrations: schemaMigrations}

	n, err := migrate.Exec(s.db.DB, "postgres", migrations, migrate.Up)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	_ = n

	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (code 23505), mapped to ErrConflict by callers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	return false
}

// wrapWriteErr converts low-level driver errors into the store's own
// sentinel errors so callers never depend on database/sql or lib/pq
// directly.
func wrapWriteErr(err error) error {
	if err == nil {
		return nil
	}

	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrConflict, err.Error())
	}

	return err
}

// wrapReadErr converts sql.ErrNoRows into ErrNotFound.
func wrapReadErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	return err
}
