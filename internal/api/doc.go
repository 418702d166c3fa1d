// Package api hosts the HTTP server, middleware, and REST handlers for the
// connector. Notable routes:
//   - POST /api/scrape to run the candidate scrape workflow (503 when the
//     datastore/automation credentials are not configured).
//   - GET /api/health and GET / for health and service summary.
//   - POST /webhooks/github and /webhooks/vercel for inbound event receivers.
//   - GET /metrics for Prometheus scraping.
package api
