package scrape

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"portal-connector/internal/browseruse"
	"portal-connector/internal/store"
)

// Runner executes one automation task and returns its structured output.
// *browseruse.Client satisfies it.
type Runner interface {
	Run(ctx context.Context, spec browseruse.TaskSpec) ([]browseruse.RawCandidate, error)
}

// Request carries the inputs for one scrape run. All fields are required.
type Request struct {
	PortalURL    string `json:"portal_url"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	PositionName string `json:"position_name"`
	CompanyName  string `json:"company_name"`
}

// Validate checks required fields and that the portal URL has a usable host.
func (r Request) Validate() error {
	switch {
	case r.PortalURL == "":
		return errors.New("portal_url is required")
	case r.Username == "":
		return errors.New("username is required")
	case r.Password == "":
		return errors.New("password is required")
	case r.PositionName == "":
		return errors.New("position_name is required")
	case r.CompanyName == "":
		return errors.New("company_name is required")
	}
	if ExtractDomain(r.PortalURL) == "" {
		return fmt.Errorf("portal_url %q has no host component", r.PortalURL)
	}
	return nil
}

// Service composes the dedup pre-check, task builder, automation client, and
// ingestion writer into the end-to-end workflow.
type Service struct {
	store    store.Store
	runner   Runner
	ingestor *Ingestor
	pepper   string
	logger   *zap.Logger
}

// NewService constructs a Service. The pepper must match the one the
// ingestion hasher uses, or the agent-side skip-list stops matching.
func NewService(st store.Store, runner Runner, ingestor *Ingestor, pepper string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, runner: runner, ingestor: ingestor, pepper: pepper, logger: logger}
}

// Scrape runs the full workflow: resolve company and position, fetch the
// existing hash set, submit the automation task, wait for its output, and
// persist the candidates. Steps are strictly sequential; the first failure
// aborts the rest and surfaces as a single aggregate error. Company and
// position creation is not rolled back on later failure; both are idempotent
// upserts, so a retried run reuses them.
func (s *Service) Scrape(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	companyID, err := s.store.EnsureCompany(ctx, req.CompanyName)
	if err != nil {
		return Result{}, fmt.Errorf("ensure company: %w", err)
	}
	positionID, err := s.store.EnsurePosition(ctx, companyID, req.PositionName)
	if err != nil {
		return Result{}, fmt.Errorf("ensure position: %w", err)
	}

	// Cheap pre-check before the expensive remote call.
	existing, err := s.store.ExistingPhoneHashes(ctx, positionID)
	if err != nil {
		return Result{}, fmt.Errorf("load existing phone hashes: %w", err)
	}

	s.logger.Info("starting automation task",
		zap.String("company_id", companyID),
		zap.String("position_id", positionID),
		zap.String("domain", ExtractDomain(req.PortalURL)),
		zap.Int("known_hashes", len(existing)))

	spec := BuildTask(req.PortalURL, req.Username, req.Password, req.PositionName, s.pepper, existing)
	candidates, err := s.runner.Run(ctx, spec)
	if err != nil {
		return Result{}, fmt.Errorf("run automation task: %w", err)
	}

	result, err := s.ingestor.Store(ctx, positionID, candidates, req.PortalURL)
	if err != nil {
		return Result{}, fmt.Errorf("ingest candidates: %w", err)
	}

	s.logger.Info("scrape completed",
		zap.String("position_id", positionID),
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped))
	return result, nil
}
