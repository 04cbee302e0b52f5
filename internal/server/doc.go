// Package server provides HTTP server setup and initialization.
//
// This package orchestrates all components:
//   - HTTP routing with Gin framework
//   - Middleware stack (CORS, rate limiting, recovery, metrics)
//   - Kernel construction with notifier and observer wiring
//   - Capability bootstrap and device mounting
//   - Rule and entity seeding
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Initialize logger (production or development)
//  3. Open the backing store (SQLite or memory)
//  4. Build the kernel, notifier, and WebSocket hub
//  5. Bootstrap and mount capability devices
//  6. Seed rule tables and entities
//  7. Setup HTTP routes and middleware
//  8. Start HTTP server
//  9. Flush to store and shut down on signal
//
// The kernel is single-threaded by contract. Handlers serialize their
// syscall sequences behind one mutex; no kernel state is reachable
// outside it.
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
