// Package spark bridges ordinary Go values and typed relational rows.
//
// The module converts three kinds of input into (schema, rows) pairs:
//
//   - Reflectable record types: exported zero-argument accessor methods are
//     discovered at runtime and mapped to a canonical relational schema
//     (package schema), then invoked per record to produce rows (package row).
//   - JSON object records: scalar types are inferred over a sample and
//     widened as conflicts appear (package infer).
//   - Delimited text: per-column types are inferred over a sample, with
//     configurable delimiter, quote, and header handling (package infer).
//
// Materialization is partition-parallel: partitions are distributed over a
// worker pool, each partition re-derives its accessors locally and checks
// them against the transported shape, and records within a partition are
// processed sequentially in input order.
//
// Package session ties everything together: it owns the record type
// registry, the named table catalog, the partition runner, and optionally a
// persistent store (package storage) backed by JetStream object buckets or
// process memory.
//
// # Layout
//
//   - types: canonical scalar types and Go kind mapping
//   - schema: accessor discovery, schema derivation, shapes, type registry
//   - row: materializers and the partition runner
//   - infer: sampling-based inference for JSON and delimited text
//   - catalog: session-scoped named tables
//   - storage: the store boundary, codec, and backends
//   - session: the user-facing façade
//   - config: layered configuration loading
//   - errors: classified error handling
//   - metric: Prometheus instrumentation
package spark
