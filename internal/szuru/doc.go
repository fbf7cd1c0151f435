// Package szuru talks to a szurubooru board over its REST API.
//
// The Client covers the operations the importer and the tag tools need:
// idempotent category and tag creation, post upload, post search and tag
// updates gated by the post version, tag listings and tag deletion. Listings
// are walked with the shared pager (100 results per page). Failures surface as
// *APIError values that unwrap to the services error markers, so callers can
// classify them with errors.Is without inspecting status codes.
package szuru
