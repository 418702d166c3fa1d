// Package postgres provides the Postgres-backed store implementation.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"portal-connector/internal/store"
)

// uniqueViolation is the Postgres error code raised when a unique constraint
// rejects a row.
const uniqueViolation = "23505"

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// querier is the subset of pgxpool.Pool the store needs. pgxmock satisfies it
// in tests.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Store implements store.Store on top of a pgx connection pool.
//
// Expected schema:
//
//	CREATE TABLE companies (
//		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//		name TEXT NOT NULL UNIQUE
//	);
//	CREATE TABLE positions (
//		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//		company_id UUID NOT NULL REFERENCES companies(id),
//		title TEXT NOT NULL,
//		UNIQUE (company_id, title)
//	);
//	CREATE TABLE candidates (
//		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//		position_id UUID NOT NULL REFERENCES positions(id),
//		first_name TEXT,
//		last_name TEXT,
//		email TEXT,
//		phone TEXT,
//		phone_hash TEXT,
//		source_url TEXT,
//		UNIQUE (position_id, phone_hash)
//	);
type Store struct {
	pool querier
}

// New creates a Store using the provided config and pings the database to
// verify the connection before returning.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for testing).
func NewWithPool(pool querier) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping verifies the backing connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// EnsureCompany returns the id of the named company, inserting it on first
// reference. A concurrent insert racing past the select loses to the unique
// constraint on name, in which case the winner's row is re-selected.
func (s *Store) EnsureCompany(ctx context.Context, name string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `SELECT id FROM companies WHERE name = $1`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("select company: %w", err)
	}

	err = s.pool.QueryRow(ctx, `INSERT INTO companies (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if isUniqueViolation(err) {
		if selErr := s.pool.QueryRow(ctx, `SELECT id FROM companies WHERE name = $1`, name).Scan(&id); selErr != nil {
			return "", fmt.Errorf("reselect company after race: %w", selErr)
		}
		return id, nil
	}
	return "", fmt.Errorf("insert company: %w", err)
}

// EnsurePosition returns the id of the (companyID, title) position, inserting
// it on first reference. Races resolve the same way as EnsureCompany.
func (s *Store) EnsurePosition(ctx context.Context, companyID, title string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM positions WHERE company_id = $1 AND title = $2`,
		companyID, title,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("select position: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO positions (company_id, title) VALUES ($1, $2) RETURNING id`,
		companyID, title,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if isUniqueViolation(err) {
		if selErr := s.pool.QueryRow(ctx,
			`SELECT id FROM positions WHERE company_id = $1 AND title = $2`,
			companyID, title,
		).Scan(&id); selErr != nil {
			return "", fmt.Errorf("reselect position after race: %w", selErr)
		}
		return id, nil
	}
	return "", fmt.Errorf("insert position: %w", err)
}

// ExistingPhoneHashes returns the non-empty phone hashes already recorded for
// a position.
func (s *Store) ExistingPhoneHashes(ctx context.Context, positionID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT phone_hash FROM candidates WHERE position_id = $1 AND phone_hash IS NOT NULL AND phone_hash <> ''`,
		positionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query phone hashes: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan phone hash: %w", err)
		}
		hashes = append(hashes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate phone hashes: %w", err)
	}
	return hashes, nil
}

// InsertCandidate persists one candidate row. The uniqueness constraint on
// (position_id, phone_hash), not application logic, adjudicates concurrent
// writers; its violation surfaces as store.ErrDuplicate.
func (s *Store) InsertCandidate(ctx context.Context, c store.Candidate) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO candidates (position_id, first_name, last_name, email, phone, phone_hash, source_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.PositionID, c.FirstName, c.LastName, c.Email, c.Phone, c.PhoneHash, c.SourceURL,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
