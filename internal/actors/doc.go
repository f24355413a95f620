// Package actors implements the logical view's actor search.
//
// An actor matches a query when the query is a case-insensitive substring of
// the actor's title or of any descendant's title, however deeply nested.
// Actors in the Invalid state are leaves: their children are never visited,
// even when the record carries a children map.
package actors
