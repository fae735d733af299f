// Package logging builds the process logger using uber/zap.
//
// Two modes:
//   - Production: sampled JSON output for machine parsing
//   - Development: colored console output for human readability
//
// The level is atomic: SetLevel on the root Logger changes every logger
// derived from it, which lets the settings watcher adjust verbosity of a
// running host.
//
// Domain packages take a plain *zap.Logger and name themselves:
//
//	logger, err := logging.New(logging.Config{Level: "info", Service: "formstack"})
//	m, err := manager.NewManager(cfg, loader, logger.Logger)
//	logger.Info("Server starting", zap.String("port", "8000"))
package logging
