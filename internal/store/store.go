// Package store defines the interfaces for persisting scrape reference data
// and candidates. Using an interface decouples the scrape workflow from a
// specific database implementation, which keeps the orchestrator testable
// without a running Postgres.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned by InsertCandidate when the
// (position_id, phone_hash) uniqueness constraint rejects the row. It is the
// only insert failure the ingestion writer counts as a skip; everything else
// is a collaborator failure.
var ErrDuplicate = errors.New("duplicate candidate")

// Company is append-only reference data, identified by exact name.
type Company struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

// Position is a named opening scoped to one company. It is the unit of
// candidate dedup scope.
type Position struct {
	ID        string `db:"id"`
	CompanyID string `db:"company_id"`
	Title     string `db:"title"`
}

// Candidate is one scraped person attached to a position. PhoneHash is the
// hex SHA-256 dedup key; the raw phone is kept alongside it.
type Candidate struct {
	ID         string `db:"id"`
	PositionID string `db:"position_id"`
	FirstName  string `db:"first_name"`
	LastName   string `db:"last_name"`
	Email      string `db:"email"`
	Phone      string `db:"phone"`
	PhoneHash  string `db:"phone_hash"`
	SourceURL  string `db:"source_url"`
}

// Store is the persistence contract for the scrape workflow.
type Store interface {
	// EnsureCompany returns the id of the company with the given name,
	// creating it first if necessary. Concurrent creation races resolve to
	// the winner's row.
	EnsureCompany(ctx context.Context, name string) (string, error)

	// EnsurePosition returns the id of the (companyID, title) position,
	// creating it first if necessary.
	EnsurePosition(ctx context.Context, companyID, title string) (string, error)

	// ExistingPhoneHashes returns the non-empty phone hashes already
	// recorded for a position. Empty slice when the position has no
	// candidates yet.
	ExistingPhoneHashes(ctx context.Context, positionID string) ([]string, error)

	// InsertCandidate persists one candidate row. Returns ErrDuplicate when
	// the uniqueness constraint on (position_id, phone_hash) fires.
	InsertCandidate(ctx context.Context, c Candidate) error

	// Ping verifies the backing connection is alive.
	Ping(ctx context.Context) error

	// Close releases pooled resources.
	Close()
}
