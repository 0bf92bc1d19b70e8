// Package errors provides standardized error handling patterns for the bridge.
//
// # Overview
//
// The errors package implements a three-class error classification system for
// the record-to-row bridge: Transient (collaborator hiccups), Invalid (bad
// input, unsupported types, non-retryable), and Fatal (unrecoverable, stop
// processing the partition or call).
//
// The core itself never retries: every failure it raises reflects either a
// structural mismatch (unsupported type, broken accessor, shape drift) or an
// external precondition (existing store). The classification exists so that
// callers embedding the bridge can make their own handling decisions.
//
// # Error Classification
//
//   - Transient: errors surfaced by external collaborators (storage backend,
//     messaging substrate) that may clear without code changes
//   - Invalid: unsupported type mappings, duplicate fields, accessor
//     invocation failures, occupied store locations, bad configuration
//   - Fatal: a type that cannot be re-resolved on an execution unit, shape
//     drift between derivations, corrupted store contents
//
// The classification system integrates with Go's standard error handling,
// supporting errors.Is(), errors.As(), and error wrapping chains.
//
// # Quick Start
//
// Use standard error variables for known conditions:
//
//	if _, ok := mappings[t.Kind()]; !ok {
//	    return errors.ErrUnsupportedType
//	}
//
// Wrap errors with context following the "component.method: action failed"
// convention:
//
//	if err := reg.Resolve(name); err != nil {
//	    return errors.WrapFatal(err, "Materializer", "New", "type resolution")
//	}
//
// Check classification at the boundary:
//
//	if errors.IsFatal(err) {
//	    // abandon the partition
//	}
package errors
