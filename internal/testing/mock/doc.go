// Package mock provides test doubles shared across presswork packages.
//
// Clock is the time seam: production code takes a Clock and defaults to
// RealClock; tests inject MockClock and move time with Advance instead of
// sleeping. The selector cache uses it for TTL expiry, safety validation for
// schedule-in-the-future checks, and the orchestrator for run timestamps.
//
// Clocks are always passed explicitly through component configuration; there
// is no package-level default to mutate.
package mock
