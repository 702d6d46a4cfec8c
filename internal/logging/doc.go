// Package logging provides per-module structured loggers built on log/slog.
//
// Every record fans out to stdout (text or json), to the systemd journal when
// journald is reachable, and to an in-memory ring buffer that backs the
// /api/logs endpoint.
//
// Initialize once at startup, then ask for a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"input": "debug"},
//	})
//	logger := logging.GetLogger("input")
//	logger.Debug("Edge discarded", "line", 17)
//
// Module levels live in a slog.LevelVar, so SetLevels can change them at
// runtime (the config watcher calls it on reload) without rebuilding loggers
// that are already held by long-running goroutines.
//
// Journal output is tagged with SYSLOG_IDENTIFIER=blinkd:
//
//	journalctl -t blinkd -f
//	journalctl -t blinkd MODULE=animation
package logging
