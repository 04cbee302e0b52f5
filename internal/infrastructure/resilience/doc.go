/*
Package resilience provides a circuit breaker for the backing store boundary.

# Overview

The kernel's only suspension point is the backing store. When the store
starts failing, the breaker trips open so load and flush requests fail
fast with ErrCircuitOpen instead of stalling every syscall sequence on a
dead database.

# Features

- Three-state circuit breaker (Closed, Open, Half-Open)
- Configurable failure thresholds and timeouts
- Automatic state transitions
- State change callbacks for monitoring
- Thread-safe operations

# Usage

	breaker := resilience.New("store", resilience.Settings{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	err := breaker.Execute(func() error {
		return store.Persist(ctx, id, entity)
	})

# States

- Closed: Normal operation, requests pass through
- Open: Store unavailable, requests fail immediately
- Half-Open: Testing if the store recovered, limited requests allowed

# Pattern

The circuit breaker transitions between states based on success/failure rates:

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
