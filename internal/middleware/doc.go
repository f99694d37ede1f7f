// Package middleware provides HTTP middleware for the ASCIIer server.
//
// It includes:
//   - Session resolution from the X-Session-Id header or sessionId query
//   - Prometheus request metrics labelled by route template
//   - Request logging in W3C Extended Log Format, tagged with the session
//   - Response compression (gzip) for JSON and text grids
//
// Wrapped response writers forward Hijack so websocket upgrades work behind
// every layer.
package middleware
