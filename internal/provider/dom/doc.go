// Package dom implements the browser-driven publishing provider.
//
// The provider steers a headless Chromium through the selector bundle: every
// named element resolves to an ordered candidate list, the first candidate
// visible on the live page wins, and resolutions are memoized in the shared
// selector cache. When a cached selector stops matching, the entry is
// invalidated and resolution re-runs once before the operation reports
// ELEMENT_NOT_FOUND.
//
// Browser access goes through the narrow driver interface; the only rod
// dependency lives in its implementation. Body composition is done in Go:
// the post body is read from the editor's text surface, transformed by pure
// helpers (image figures, related-articles block, FAQ schema), and written
// back, which keeps paragraph positions deterministic.
package dom
