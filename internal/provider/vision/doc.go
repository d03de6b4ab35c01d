// Package vision implements the model-driven fallback provider. It renders
// per-operation instructions from the instruction bundle, shows the model
// screenshots of the admin UI, and executes the primitive actions the model
// requests through tool calls until the model reports the goal reached.
//
// Credentials never enter the conversation: the model asks to type the
// username or password by field name and the provider substitutes the real
// values locally. Every instruction run is bounded by an iteration cap and a
// per-run token budget, and model calls go through a circuit breaker so a
// dead API fails fast instead of burning the run timeout.
package vision
