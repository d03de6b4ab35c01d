// Package provider defines the automation contract every CMS provider
// implements, and the classified error type providers use to report failures.
//
// A Provider owns a browser-or-model session against one CMS and exposes the
// operations the orchestrator sequences: lifecycle (Initialize, Login, Close),
// content (title, body, images, SEO, taxonomy, related block, FAQ schema),
// terminal actions (SaveDraft, Publish, Schedule), and introspection
// (PublishedURL, CurrentPostID, VerifyContentSaved, Screenshot, Cookies).
//
// Two implementations exist: provider/dom drives the CMS through CSS
// selectors and a headless browser; provider/vision drives it through a
// vision-capable model issuing display actions. The orchestrator treats both
// uniformly and fails over between them.
//
// # Error Classification
//
// Every failed operation returns *Error carrying a cms.ErrorKind and the
// transient/fatal decision. Classification happens here, at the lowest level
// that can see the real cause; callers use IsTransient and KindOf and never
// inspect driver or SDK errors directly.
package provider
