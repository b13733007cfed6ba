// Package store implements the local resource store: a SQLite mirror of
// server resources used for offline and low-latency queries. It includes:
//   - Store interface and SQLiteStore implementation
//   - per-type main tables and FTS5 shadow search tables, kept in lockstep
//     by triggers
//   - schema fingerprints that rebuild a type's tables when its layout changes
//   - row projection from raw resource payloads
//   - QuerySpec translation to SQL
package store
