// Package logger provides structured logging for ttscraper.
//
// It wraps zerolog behind a small Logger interface:
//
//	err := logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("handle", "someone")
//	log.Info("Scrape started")
//	log.WithError(err).Error("Browser launch failed")
//
// Components take a Logger in their constructor; tests pass NewTestLogger()
// and assert on the captured messages.
//
// Configuration (config.LoggingConfig):
//   - Level: debug, info, warn, error, disabled
//   - Format: console (colored) or json
//   - File: optional path; console output is kept alongside it
package logger
