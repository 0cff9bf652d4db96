// Package logging provides structured logging configuration for replayd.
//
// This package wraps log/slog so the detector, the stores, the engine and the
// session manager all log the same way.
//
// # Usage
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("session started", "port", 54012, "mode", "record")
//	logger.Warn("skipping corrupt snapshot history", "path", p, "error", err)
//
// # Integration
//
// Components accept a *slog.Logger in their Options struct. A nil logger is
// replaced with OrNop, which discards everything.
package logging
