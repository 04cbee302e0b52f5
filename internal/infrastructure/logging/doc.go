// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for human readability
//
// Example:
//
//	logger := logging.NewDefault()
//	logger.Info("kernel ready", zap.Int("capabilities", 6))
//	logger.Error("store failure", zap.Error(err))
package logging
