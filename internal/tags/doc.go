// Package tags canonicalizes free-text tag strings and sorts them into board
// categories.
//
// Every tag that reaches the board passes through Normalize, so the rules here
// define tag identity: trimmed, lower-cased, whitespace runs collapsed and
// joined with underscores. A recognized namespace prefix (creator:, series:,
// ...) only selects the category; the prefix is stripped from the name that is
// attached to a post.
package tags
