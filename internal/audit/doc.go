// Package audit persists the per-run audit trail.
//
// Each publish run writes one JSON-lines file named after its task ID: one
// record per phase transition, retry, failover, safety report, and recovery
// attempt. External collaborators replay the file to reconstruct what the
// run did; nothing in the core reads it back.
//
// Auditing is best-effort. A nil *Trail discards records, and write failures
// are logged without disturbing the run.
package audit
