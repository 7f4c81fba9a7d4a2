// Package sink delivers materialized statement sets.
//
// The engine hands every partition's set to a Sink after all partitions
// have completed. Sinks exist for a directory of per-partition files, a
// single writer (stdout), a NATS subject, and an in-memory set.
package sink
