package vision

import (
	"context"

	"presswork/internal/cms"
)

// display is the browser surface the model acts on. The rod implementation
// lives in rod.go; tests script a fake. Coordinates are CSS pixels in the
// fixed viewport the screenshots are taken at.
type display interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// Screenshot captures the viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	// Click clicks at the given viewport coordinates.
	Click(ctx context.Context, x, y float64) error

	// Type inserts text into the focused element.
	Type(ctx context.Context, text string) error

	// PressKey presses a named key ("enter", "tab", "escape", ...).
	PressKey(ctx context.Context, key string) error

	// Scroll scrolls the page by the given deltas.
	Scroll(ctx context.Context, dx, dy float64) error

	// Upload sets the page's visible file input to path.
	Upload(ctx context.Context, path string) error

	// Cookies captures the browser session cookies.
	Cookies(ctx context.Context) ([]cms.Cookie, error)

	// SetCookies installs cookies before navigation.
	SetCookies(ctx context.Context, cookies []cms.Cookie) error

	// Close tears the browser session down.
	Close(ctx context.Context) error
}
