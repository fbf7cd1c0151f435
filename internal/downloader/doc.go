// Package downloader fetches media with gallery-dl and reads the JSON
// metadata sidecars it writes next to each file.
//
// Every download lands in its own directory below the configured download
// root so concurrent imports never observe each other's files. Command
// execution goes through the Executor interface so tests can substitute a
// stub that writes fixture files instead of spawning gallery-dl.
package downloader
