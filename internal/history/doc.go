// Package history persists a record of every import, propagation and sweep
// run in a SQLite database under the state directory.
//
// The store is append-only. Callers record a Run when a run finishes and list
// recent runs for the CLI and the API. Recording is best effort: callers log
// failures and never fail the run that produced them.
package history
