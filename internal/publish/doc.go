// Package publish sequences one article through a provider: a linear phase
// machine with per-phase retry of transient failures, a one-shot failover to
// a fallback provider, a safety gate before any terminal write, and an
// at-most-once terminal publish with ambiguity reconciliation.
//
// A Publisher is safe for concurrent use; every Publish call runs on its own
// provider session and run context. The returned PublishResult is always
// fully populated, success or failure.
package publish
