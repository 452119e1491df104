// Package api hosts the HTTP server, middleware, and REST handlers for operator
// access. Notable routes:
//   - GET /healthz for liveness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/collectors to list collectors and their pending actions.
//   - POST /v1/collectors/{id}/flush to release one collector's subscriptions.
package api
