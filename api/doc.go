// Package api exposes the coordinator over HTTP.
//
// Routes:
//   - GET /api/status     coordinator snapshot
//   - GET /api/schedule   live schedule and summary
//   - GET /api/decisions  decision history, filtered by start, end and state
//   - GET /api/chart      price curve with the planned hours
//   - GET /healthz        200 when every input is ready, 503 otherwise
//   - GET /metrics        Prometheus metrics
package api
