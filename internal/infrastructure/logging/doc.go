// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components receive a *Logger and derive named children for their own
// subsystem (Named("session"), Named("router"), ...). Session scoped fields
// are attached with ForSession so every line of a conferencing attempt can
// be correlated by session_id and generation.
//
// Example Usage:
//
//	logger, err := logging.New(logging.DefaultConfig())
//	logger.Info("Bridge starting", zap.String("port", "8000"))
//	logger.ForSession("0b7c...", 3).Warn("Stale callback", zap.String("event", "connected"))
package logging
