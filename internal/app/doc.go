// Package app bootstraps and runs the supervisor.
//
// The Application follows a two-phase initialization pattern:
//
//  1. Bootstrap phase: load configuration, initialize logging, wire the
//     deployment, provider controller and bootstrap orchestrator into a
//     supervisor.
//  2. Execution phase: start the supervisor, notify systemd when running
//     under it, and block until a shutdown signal arrives.
//
// Builds that compile the API application into the binary register it with
// RegisterEmbeddedApp, which switches the supervisor to bundled mode. All
// other builds serve the source checkout next to the executable.
package app
