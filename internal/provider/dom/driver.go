package dom

import (
	"context"
	"strings"
	"time"

	"presswork/internal/cms"
)

// driver is the browser surface the provider drives. The rod implementation
// lives in rod.go; tests script a fake. Selectors are CSS, or XPath when
// prefixed with "//".
type driver interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// WaitStable waits for the DOM to stop mutating.
	WaitStable(ctx context.Context) error

	// Exists probes for the selector without waiting.
	Exists(ctx context.Context, selector string) (bool, error)

	// WaitVisible waits until the selector matches a visible element,
	// bounded by timeout.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// Click scrolls the element into view and clicks it.
	Click(ctx context.Context, selector string) error

	// Fill replaces the element's current content with value.
	Fill(ctx context.Context, selector, value string) error

	// SetSelectValue sets a <select> element's value and fires change.
	SetSelectValue(ctx context.Context, selector, value string) error

	// Text returns the element's visible text.
	Text(ctx context.Context, selector string) (string, error)

	// Value returns a form control's current value.
	Value(ctx context.Context, selector string) (string, error)

	// Attribute returns the named attribute, or "" when absent.
	Attribute(ctx context.Context, selector, name string) (string, error)

	// Checked returns a checkbox's live checked state.
	Checked(ctx context.Context, selector string) (bool, error)

	// Upload sets a file input's file.
	Upload(ctx context.Context, selector, path string) error

	// Cookies captures the browser session cookies.
	Cookies(ctx context.Context) ([]cms.Cookie, error)

	// SetCookies installs cookies before navigation.
	SetCookies(ctx context.Context, cookies []cms.Cookie) error

	// Screenshot captures the current viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	// Close tears the browser session down.
	Close(ctx context.Context) error
}

// isXPath reports whether a selector candidate is an XPath expression.
func isXPath(selector string) bool {
	return strings.HasPrefix(selector, "//") || strings.HasPrefix(selector, "(//")
}
