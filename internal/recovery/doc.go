// Package recovery extracts a structured compliance analysis from free-form model
// output that may be truncated, partially quoted or wrapped in prose.
//
// Every function in this package is pure: no I/O, no shared state, safe to call
// concurrently. Recover always returns a record and reports through
// Record.RecoveryPath which stage produced it.
package recovery
