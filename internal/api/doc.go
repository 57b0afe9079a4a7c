// Package api implements the HTTP write gateway for the line writer.
//
// This package provides:
//   - POST /api/v1/write: JSON points in, accepted into the pipeline
//   - POST /api/v1/render: JSON points in, line protocol text out, nothing delivered
//   - GET /api/v1/stats: pipeline counters and spool backlog per sink
//   - GET /api/v1/health: liveness plus the health of every registered component
//   - GET /api/v1/stream: WebSocket tail of delivered batches, when enabled
//   - Middleware for request IDs, logging and panic recovery, plus a body
//     limit that also inflates gzip request bodies
//
// # Validation
//
// Write and render accept the document format of package ingest. A document
// is accepted whole or rejected whole: when any point fails validation the
// response is 400 and lists every problem of every rejected point, so a
// client can fix a payload in one round trip.
//
// # Graceful Degradation
//
// Health checks are informational. A failing sink turns the health status to
// "degraded" and the response code to 503, but writes keep being accepted;
// the pipeline spools what the sink cannot take.
package api
