// Package services defines shared utilities consumed by the board client, the
// importer and the tag tools.
//
// Key responsibilities:
//   - Context helpers that stamp correlation identifiers and run kinds for
//     logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (configuration vs validation vs remote) with errors.Is.
//
// Use these helpers when wiring new integrations so operational behaviour
// (error handling, observability) stays uniform across commands and the API.
package services
