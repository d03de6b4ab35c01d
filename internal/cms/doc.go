// Package cms defines the domain data model shared by every layer of
// presswork: the article payload handed to a publish run, the target CMS
// description, the publish intent, and the structured result a run returns.
//
// The package is intentionally dependency-free. Providers, the orchestrator,
// safety validation, and the CLI all consume these types; nothing in this
// package reaches back into them.
//
// # Error Taxonomy
//
// ErrorKind is the closed set of failure categories used across component
// boundaries. Lower layers classify failures into a kind exactly once, at the
// point where the failure is observed; upper layers branch on the kind and
// never re-interpret provider-internal details.
//
// # Credential Hygiene
//
// Credentials and Cookie carry secret material. Both redact themselves when
// formatted or marshaled, so a stray %v in a log line or an audit record
// cannot leak a password or a session token. Code that needs the real values
// reads the struct fields directly.
package cms
