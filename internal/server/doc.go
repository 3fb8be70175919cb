// Package server launches and stops the local API server process.
//
// Two launchers cover the two ways the application ships. ScriptLauncher
// spawns the server as a child interpreter process from a source checkout
// and manages its full lifetime, including a graceful stop that escalates
// to a kill. BundledLauncher serves an application compiled into the
// supervisor binary on a background goroutine.
package server
