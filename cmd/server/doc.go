// Package main is the entry point for the sheetforge kernel server.
//
// The server hosts one capability kernel instance behind a REST and
// WebSocket surface. All game-entity state lives in the kernel's path
// namespace and is reached through syscall-shaped operations; capability
// devices under /dev carry the rule logic.
//
// The server provides:
//   - REST API for the entity namespace and capability ioctls
//   - WebSocket streaming of change notifications
//   - SQLite-backed persistence with explicit load/flush
//   - Gzip snapshots of the entity namespace
//   - Rate limiting and Prometheus metrics
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# In-memory store
//	./server -port 8000
//
//	# SQLite persistence with seeded rules
//	./server -store sheetforge.db -rules rules.yaml -entities ./seed
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown (flushes to store)
package main
