package vision

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"presswork/internal/cms"
)

// The viewport is pinned so the coordinates the model reads off screenshots
// stay valid between iterations.
const (
	viewportWidth  = 1280
	viewportHeight = 800
)

var keyNames = map[string]input.Key{
	"enter":       input.Enter,
	"tab":         input.Tab,
	"escape":      input.Escape,
	"backspace":   input.Backspace,
	"delete":      input.Delete,
	"arrow_up":    input.ArrowUp,
	"arrow_down":  input.ArrowDown,
	"arrow_left":  input.ArrowLeft,
	"arrow_right": input.ArrowRight,
	"page_up":     input.PageUp,
	"page_down":   input.PageDown,
}

type rodDisplay struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
}

func newRodDisplay(cfg Config) (display, error) {
	var (
		controlURL string
		l          *launcher.Launcher
		err        error
	)
	if cfg.ControlURL != "" {
		controlURL = cfg.ControlURL
	} else {
		l = launcher.New().Headless(cfg.Headless)
		controlURL, err = l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launching browser: %w", err)
		}
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		if l != nil {
			l.Cleanup()
		}
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		if l != nil {
			l.Cleanup()
		}
		return nil, fmt.Errorf("opening page: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		_ = browser.Close()
		if l != nil {
			l.Cleanup()
		}
		return nil, fmt.Errorf("setting viewport: %w", err)
	}

	return &rodDisplay{browser: browser, page: page, launcher: l}, nil
}

func (d *rodDisplay) Navigate(ctx context.Context, url string) error {
	p := d.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return err
	}
	if err := p.WaitLoad(); err != nil {
		return err
	}
	return p.WaitDOMStable(300*time.Millisecond, 0.1)
}

func (d *rodDisplay) Screenshot(ctx context.Context) ([]byte, error) {
	return d.page.Context(ctx).Screenshot(false, nil)
}

func (d *rodDisplay) Click(ctx context.Context, x, y float64) error {
	p := d.page.Context(ctx)
	if err := p.Mouse.MoveTo(proto.NewPoint(x, y)); err != nil {
		return err
	}
	return p.Mouse.Click(proto.InputMouseButtonLeft, 1)
}

func (d *rodDisplay) Type(ctx context.Context, text string) error {
	return d.page.Context(ctx).InsertText(text)
}

func (d *rodDisplay) PressKey(ctx context.Context, key string) error {
	k, ok := keyNames[key]
	if !ok {
		return fmt.Errorf("unknown key %q", key)
	}
	return d.page.Context(ctx).Keyboard.Press(k)
}

func (d *rodDisplay) Scroll(ctx context.Context, dx, dy float64) error {
	return d.page.Context(ctx).Mouse.Scroll(dx, dy, 1)
}

func (d *rodDisplay) Upload(ctx context.Context, path string) error {
	el, err := d.page.Context(ctx).Element("input[type=file]")
	if err != nil {
		return err
	}
	return el.SetFiles([]string{path})
}

func (d *rodDisplay) Cookies(ctx context.Context) ([]cms.Cookie, error) {
	raw, err := d.browser.GetCookies()
	if err != nil {
		return nil, err
	}
	cookies := make([]cms.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, cms.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  epochToTime(float64(c.Expires)),
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		})
	}
	return cookies, nil
}

func (d *rodDisplay) SetCookies(ctx context.Context, cookies []cms.Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if !c.Expires.IsZero() {
			p.Expires = proto.TimeSinceEpoch(float64(c.Expires.UnixNano()) / float64(time.Second))
		}
		params = append(params, p)
	}
	return d.browser.SetCookies(params)
}

func (d *rodDisplay) Close(ctx context.Context) error {
	err := d.browser.Close()
	if d.launcher != nil {
		d.launcher.Cleanup()
	}
	return err
}

func epochToTime(sec float64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), int64((sec-float64(int64(sec)))*float64(time.Second)))
}
