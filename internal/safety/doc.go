// Package safety implements the pre-publish validation gate.
//
// The orchestrator invokes the gate once per run, after every content phase
// and before the terminal publish or schedule action, and only for non-draft
// intents. The gate executes a fixed sequence of checks against the request
// payload and the live post state (read through a narrow provider slice) and
// returns a Report. Critical failures block the publish with SAFETY_BLOCKED;
// non-critical findings pass through as warnings on the run result.
package safety
