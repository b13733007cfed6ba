// Package schema defines the resource type registry: per-type attribute
// definitions with their data types, the subset that can be sorted on and the
// subset indexed for full-text search. Every other package reads column
// layouts from here; the registry is immutable once built.
package schema
