// Package api implements the HTTP REST API and realtime WebSocket endpoint
// for Builder Core.
//
// This package provides:
//   - REST endpoints for user, profile, and template CRUD
//   - JWT token issuance, refresh with rotation, and verification
//   - The realtime endpoint for presence tracking and template edits
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between clients (the builder frontend) and the
// domain layer: user/profile/template repositories, the session registry,
// and the update coordinator. Template payload writes from both REST and
// the realtime channel route through the coordinator, so concurrent
// writers to one template never interleave.
//
// # Security
//
// REST authentication uses JWT bearer tokens (HS256) with stored refresh
// tokens; refresh rotation detects token reuse and revokes the family.
// The realtime endpoint binds the connection to the user identified in
// the path and refuses the handshake when no such user exists.
//
// # Graceful Degradation
//
// The server operates without the MQTT event bus or InfluxDB telemetry.
// Both are optional fan-out paths; when absent, updates simply are not
// published or recorded.
package api
