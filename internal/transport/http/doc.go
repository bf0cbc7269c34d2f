// Package http contains the chi HTTP handlers for the risk API.
//
// Routes:
//
//	POST /api/risk/analyze         - full risk report (JSON)
//	POST /api/risk/analyze/export  - same analysis as an XLSX download
//	GET  /api/health               - liveness + effective engine config
//	GET  /metrics                  - Prometheus metrics
//
// Handlers decode and validate payloads, delegate to the services layer
// and render either the report or an RFC 7807 problem response.
package http
