// Package engine opens the cache database on the modernc.org/sqlite driver
// and registers the scalar functions the resource store queries with:
// res_contains for case-insensitive substring filters and res_time for
// comparing RFC 3339 timestamps of any fractional width.
package engine
