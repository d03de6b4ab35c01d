package cms

// ErrorKind is the closed set of failure categories crossing component
// boundaries. Providers classify low-level failures into exactly one kind;
// the orchestrator and callers branch on the kind, never on provider
// internals.
type ErrorKind string

const (
	// ErrAuthRejected means the CMS refused the login credentials. Fatal:
	// retrying the same credentials cannot succeed.
	ErrAuthRejected ErrorKind = "AUTH_REJECTED"

	// ErrElementNotFound means no selector candidate resolved to a usable
	// element, after cache invalidation and one re-resolution.
	ErrElementNotFound ErrorKind = "ELEMENT_NOT_FOUND"

	// ErrNavigationTimeout means a page load or DOM-stability wait exceeded
	// its deadline. Transient.
	ErrNavigationTimeout ErrorKind = "NAVIGATION_TIMEOUT"

	// ErrUploadFailed means a media upload did not complete. Transient.
	ErrUploadFailed ErrorKind = "UPLOAD_FAILED"

	// ErrSEOPluginMissing means no supported SEO plugin was detected. It is
	// a warning, never a run failure.
	ErrSEOPluginMissing ErrorKind = "SEO_PLUGIN_MISSING"

	// ErrSafetyBlocked means pre-publish validation found a critical
	// problem; the terminal action was not attempted.
	ErrSafetyBlocked ErrorKind = "SAFETY_BLOCKED"

	// ErrAmbiguousPublish means the publish confirmation was lost but
	// post-hoc evidence showed the post went live. It is a warning attached
	// to a successful result.
	ErrAmbiguousPublish ErrorKind = "AMBIGUOUS_PUBLISH"

	// ErrProviderExhausted means every eligible provider failed; there is
	// nothing left to fail over to.
	ErrProviderExhausted ErrorKind = "PROVIDER_EXHAUSTED"

	// ErrRecoveryFailed means the post-failure demotion to draft itself
	// failed; the post may be in an unsafe state.
	ErrRecoveryFailed ErrorKind = "RECOVERY_FAILED"

	// ErrTimeout means a whole-run or per-operation budget was exceeded.
	ErrTimeout ErrorKind = "TIMEOUT"

	// ErrConfigInvalid means settings or bundles failed validation. Raised
	// at load time; a run never starts with an invalid configuration.
	ErrConfigInvalid ErrorKind = "CONFIG_INVALID"
)

// Warning reports whether the kind describes a degraded-but-successful
// condition rather than a failure.
func (k ErrorKind) Warning() bool {
	return k == ErrSEOPluginMissing || k == ErrAmbiguousPublish
}

// RunError is the failure summary embedded in a PublishResult.
type RunError struct {
	Kind    ErrorKind `json:"kind"`
	Phase   string    `json:"phase,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *RunError) Error() string {
	if e.Phase != "" {
		return string(e.Kind) + " in " + e.Phase + ": " + e.Message
	}
	return string(e.Kind) + ": " + e.Message
}
