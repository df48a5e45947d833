// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Order submission, cancellation and status queries
//   - Task graph inspection with readiness information
//   - Task state reports from downstream provisioning services
//   - Health checks
//   - Prometheus metrics
package http
