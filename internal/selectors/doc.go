// Package selectors provides the selector resolution cache and the
// per-operation performance tracker used by the DOM provider.
//
// Resolving a named element means probing its configured selector candidates
// against the live page until one is visible. That probe is expensive, so
// successful resolutions are cached per (element, CMS kind) with a TTL.
// Concurrent resolutions of the same key collapse into one probe via
// singleflight. A provider that later finds a cached selector stale
// invalidates the entry and resolves again; the cache never serves an entry
// past its TTL.
//
// The Tracker records operation outcomes and durations. The provider writes
// during the session and logs the per-operation summary when the session
// closes.
package selectors
