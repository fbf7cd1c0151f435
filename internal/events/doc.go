// Package events defines the progress stream emitted by long-running tag
// operations.
//
// A run reports through a Sink: status lines, per-tag progress, informational
// notes, per-item successes and failures, per-tag summaries and a final
// complete event carrying the aggregate counters. The complete event is always
// the last one a run emits. The JSON shape of Event is the wire format of the
// streaming API.
package events
