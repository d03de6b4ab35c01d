package dom

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"presswork/internal/cms"
)

// rodDriver drives a Chromium instance through go-rod. The browser is owned
// by the driver: launched at construction unless a CDP control URL attaches
// to an external one, and torn down in Close.
type rodDriver struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
}

func newRodDriver(cfg Config) (driver, error) {
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

	// The browser deliberately runs on the background context: per-operation
	// deadlines bind to pages, never to the browser connection.
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

	return &rodDriver{browser: browser, page: page, launcher: l}, nil
}

func (d *rodDriver) Navigate(ctx context.Context, url string) error {
	p := d.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return err
	}
	return p.WaitLoad()
}

func (d *rodDriver) WaitStable(ctx context.Context) error {
	return d.page.Context(ctx).WaitDOMStable(300*time.Millisecond, 0.1)
}

func (d *rodDriver) Exists(ctx context.Context, selector string) (bool, error) {
	p := d.page.Context(ctx)
	if isXPath(selector) {
		ok, _, err := p.HasX(selector)
		return ok, err
	}
	ok, _, err := p.Has(selector)
	return ok, err
}

func (d *rodDriver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := d.element(tctx, selector)
	if err != nil {
		return err
	}
	return el.WaitVisible()
}

func (d *rodDriver) Click(ctx context.Context, selector string) error {
	el, err := d.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.ScrollIntoView(); err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (d *rodDriver) Fill(ctx context.Context, selector, value string) error {
	el, err := d.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(value)
}

func (d *rodDriver) SetSelectValue(ctx context.Context, selector, value string) error {
	el, err := d.element(ctx, selector)
	if err != nil {
		return err
	}
	_, err = el.Eval(`(v) => { this.value = v; this.dispatchEvent(new Event('change', { bubbles: true })); }`, value)
	return err
}

func (d *rodDriver) Text(ctx context.Context, selector string) (string, error) {
	el, err := d.element(ctx, selector)
	if err != nil {
		return "", err
	}
	return el.Text()
}

func (d *rodDriver) Value(ctx context.Context, selector string) (string, error) {
	el, err := d.element(ctx, selector)
	if err != nil {
		return "", err
	}
	prop, err := el.Property("value")
	if err != nil {
		return "", err
	}
	if prop.Nil() {
		return el.Text()
	}
	return prop.Str(), nil
}

func (d *rodDriver) Attribute(ctx context.Context, selector, name string) (string, error) {
	el, err := d.element(ctx, selector)
	if err != nil {
		return "", err
	}
	attr, err := el.Attribute(name)
	if err != nil {
		return "", err
	}
	if attr == nil {
		return "", nil
	}
	return *attr, nil
}

func (d *rodDriver) Checked(ctx context.Context, selector string) (bool, error) {
	el, err := d.element(ctx, selector)
	if err != nil {
		return false, err
	}
	prop, err := el.Property("checked")
	if err != nil {
		return false, err
	}
	return prop.Bool(), nil
}

func (d *rodDriver) Upload(ctx context.Context, selector, path string) error {
	el, err := d.element(ctx, selector)
	if err != nil {
		return err
	}
	return el.SetFiles([]string{path})
}

func (d *rodDriver) Cookies(ctx context.Context) ([]cms.Cookie, error) {
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

func (d *rodDriver) SetCookies(ctx context.Context, cookies []cms.Cookie) error {
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

func (d *rodDriver) Screenshot(ctx context.Context) ([]byte, error) {
	return d.page.Context(ctx).Screenshot(false, nil)
}

func (d *rodDriver) Close(ctx context.Context) error {
	err := d.browser.Close()
	if d.launcher != nil {
		d.launcher.Cleanup()
	}
	return err
}

func (d *rodDriver) element(ctx context.Context, selector string) (*rod.Element, error) {
	p := d.page.Context(ctx)
	if isXPath(selector) {
		return p.ElementX(selector)
	}
	return p.Element(selector)
}

// epochToTime converts CDP's seconds-since-epoch; negative values mark
// session cookies.
func epochToTime(sec float64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), int64((sec-float64(int64(sec)))*float64(time.Second)))
}
