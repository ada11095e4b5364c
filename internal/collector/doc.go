// Package collector drains cursor-paginated collections.
//
// A drain requests the first page with an empty cursor, merges its items by
// key, publishes the partial result and follows the returned cursor until the
// source reports no further page. Items keep their first-seen position; a later
// page carrying a known key overwrites the earlier value in place.
//
// A failed fetch ends the drain with the accumulated items and a classified
// error. Nothing is retried: the source offers no cursor to resume from, so a
// retry is a fresh Start from the first page.
package collector
