// Package logging provides the structured logging system for shepherd.
//
// It is a thin layer over Go's standard slog package: every entry carries a
// timestamp, a level tag, a subsystem identifier, the message, and an optional
// error attribute. Output goes to the console, or to the console mirrored into
// an append-only log file when initialized through InitWithFile.
//
// # Usage
//
//	// Console plus append-only file, as the supervisor does at startup.
//	closer, err := logging.InitWithFile(logging.LevelInfo, "/tmp/shepherd.log")
//	if err != nil {
//	    logging.Warn("App", "Log file unavailable, console only: %v", err)
//	}
//	defer closer()
//
//	logging.Info("Supervisor", "Starting shepherd on port %d", port)
//	logging.Error("Provider", err, "Failed to stop provider daemon")
//
// # Subsystems
//
// Logs are tagged by subsystem so a single file can be filtered per concern:
// Supervisor, Environment, Server, Provider, Bootstrap, ConfigLoader, LogTail,
// App.
//
// Level filtering happens in the slog handler, so suppressed messages cost no
// allocation. The package is safe for concurrent use.
package logging
