package scrape

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"portal-connector/internal/browseruse"
	"portal-connector/internal/store"
)

// ingestConcurrency bounds concurrent candidate writes. Candidates are
// independent; the uniqueness constraint adjudicates any race, so parallel
// writers cannot change the final counts.
const ingestConcurrency = 4

// Result aggregates one ingestion pass.
type Result struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// Hasher turns a raw phone string into its dedup digest.
type Hasher interface {
	Digest(phone string) string
}

// Ingestor persists raw candidate records under the uniqueness invariant.
type Ingestor struct {
	store  store.Store
	hasher Hasher
	logger *zap.Logger
}

// NewIngestor constructs an Ingestor.
func NewIngestor(st store.Store, hasher Hasher, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{store: st, hasher: hasher, logger: logger}
}

// Store persists each raw candidate for the position. A rejected duplicate
// (unique-violation on position_id + phone_hash) counts as skipped; any other
// write failure aborts the pass. Re-running with the same inputs is a no-op:
// every row is rejected as a duplicate on the second pass.
func (i *Ingestor) Store(ctx context.Context, positionID string, candidates []browseruse.RawCandidate, sourceURL string) (Result, error) {
	var inserted, skipped atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ingestConcurrency)

	for _, raw := range candidates {
		raw := raw
		g.Go(func() error {
			c := store.Candidate{
				PositionID: positionID,
				FirstName:  raw.FirstName,
				LastName:   raw.LastName,
				Email:      raw.Email,
				Phone:      raw.Phone,
				PhoneHash:  i.hasher.Digest(raw.Phone),
				SourceURL:  sourceURL,
			}
			err := i.store.InsertCandidate(ctx, c)
			switch {
			case err == nil:
				inserted.Add(1)
				return nil
			case errors.Is(err, store.ErrDuplicate):
				skipped.Add(1)
				i.logger.Debug("duplicate candidate skipped",
					zap.String("position_id", positionID),
					zap.String("phone_hash", c.PhoneHash))
				return nil
			default:
				return fmt.Errorf("store candidate: %w", err)
			}
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return Result{Inserted: int(inserted.Load()), Skipped: int(skipped.Load())}, nil
}
