// Package api implements the HTTP REST API and WebSocket server for hwcore.
//
// This package provides:
//   - REST endpoints for device lifecycle (power, mode, stream, suspend/resume)
//   - Runtime control reads and writes with persisted values
//   - WebSocket hub for real-time state change broadcasts
//   - JWT authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// The API server sits between operator tooling and the device manager.
// Every operation goes through the manager, which serialises hardware
// access per device and records transitions; the API layer only maps
// HTTP to manager calls and domain errors to status codes.
//
// # Security
//
// Authentication uses HS256 JWT bearer tokens signed with the shared
// secret from the security config; tokens are minted out of band.
// WebSocket connections use single-use tickets to prevent token leakage
// in URLs.
package api
