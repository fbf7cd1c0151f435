// Package server exposes imports, implication propagation and unused-tag
// sweeps over HTTP.
//
// Every run endpoint has a JSON variant that answers once the run finishes
// and, for propagation and sweeps, a streaming variant that writes one
// server-sent-event data frame per progress event. Streamed runs are detached
// from the request context so a consumer that disconnects does not abort
// work already under way on the board. A file lock under the state directory
// keeps a second server from sharing the same history database.
package server
