// Package logging configures log/slog for the pool, the interception
// scope and the CLI.
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatJSON,
//	})
//	logger.Info("pool built", "definitions", 12)
//
// Components accept a *slog.Logger through an option and fall back to
// Nop. In tests, NewTestLogger routes records to the running test, and
// Tee fans records out to several handlers.
package logging
