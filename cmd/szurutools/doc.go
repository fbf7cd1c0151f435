// Package main hosts the szurutools CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration lazily, builds the board client
// on demand, and prints run progress one event per line. The API server is
// started with `szurutools serve`; every other command runs in-process.
package main
