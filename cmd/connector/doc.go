// Package main hosts the connector service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes the scrape trigger, health and
//     service-summary endpoints, the two webhook receivers, and /metrics.
//     Scrape requests are validated, executed synchronously, and answered with
//     aggregate inserted/skipped counts.
//   - Scrape workflow: internal/scrape composes the dedup pre-check (existing
//     phone hashes for the position), the task builder (instruction + secrets
//     namespace + allowed-domains restriction + structured output schema), the
//     Browser-Use client (submit once, poll until terminal, bounded by a
//     configurable budget), and the ingestion writer (bounded-parallel inserts
//     where the unique constraint on (position_id, phone_hash) adjudicates
//     duplicates).
//   - Persistence: internal/store/postgres holds companies, positions, and
//     candidates behind the store.Store interface on a pgx connection pool.
//     Company and position creation are idempotent upserts, so partial runs
//     are safe to retry without rollback.
//   - Webhooks: internal/webhook verifies GitHub (HMAC-SHA256, sha256= prefix)
//     and Vercel (HMAC-SHA1, raw hex) signatures in constant time over the
//     exact received bytes, then summarizes known event shapes. An unset
//     secret switches that receiver to a loudly-logged fail-open mode.
//   - Configuration & plumbing: Viper populates config from env (CONNECTOR_*
//     prefix, PORT honored) with an optional file; godotenv loads .env for
//     local runs; zap provides structured logging; Prometheus counters and
//     histograms track HTTP, scrape, and webhook activity.
//
// Operational notes:
//   - Capability gating: without CONNECTOR_DB_DSN and CONNECTOR_BROWSERUSE_API_KEY
//     the process still serves webhooks and health, but /api/scrape answers 503.
//   - Concurrency model: each request is handled independently; the only
//     shared state is the read-only config and the pgx pool. Candidate writes
//     within one run fan out through a size-limited errgroup.
//   - Shutdown: SIGINT/SIGTERM triggers graceful http.Server.Shutdown with a
//     10s budget, then the connection pool closes.
//
// Quick checklist:
//   - Configure env vars: CONNECTOR_DB_DSN, CONNECTOR_BROWSERUSE_API_KEY,
//     CONNECTOR_WEBHOOK_GITHUB_SECRET, CONNECTOR_WEBHOOK_VERCEL_SECRET,
//     optionally CONNECTOR_HASH_PEPPER and CONNECTOR_BROWSERUSE_POLL_TIMEOUT_SECONDS.
//   - Run locally: go run ./cmd/connector -config config.yaml (or rely solely
//     on env overrides / a .env file).
package main
