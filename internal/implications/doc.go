// Package implications propagates tag implications onto posts and sweeps
// unused tags from the board.
//
// The Propagator resolves each source tag's implications, walks every post
// carrying the tag, and adds whichever implied tags the post is missing,
// echoing the post version so concurrent edits are rejected by the board
// rather than overwritten. The Sweeper deletes tags with zero usages. Both
// report through events.Emitter, honour dry-run mode with identical counters,
// and isolate failures per tag or per post: a run always ends with a complete
// event and never returns an error.
package implications
