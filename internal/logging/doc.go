// Package logging provides structured logging with per-module log levels.
//
// Loggers are created on first use and routed to stdout, the systemd journal,
// or both, depending on what is available:
//
//	logging.Initialize(logging.Config{Level: "info", Modules: map[string]string{"iodev": "debug"}})
//	logger := logging.GetLogger("card")
//	logger.Info("Card added", "index", 1)
//
// Levels can be changed at runtime with Initialize or SetModuleLevel; loggers
// handed out earlier follow the change.
package logging
