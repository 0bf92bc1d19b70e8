// Package session provides the user-facing façade: creating datasets from
// Go records, JSON, or delimited text, registering them as named tables,
// querying the catalog, and persisting datasets to a store backend.
//
// A session bundles one record type registry, one table catalog, one
// partition runner, and at most one store. Sessions share nothing; the
// catalog and registry are scoped to the session that created them.
package session
