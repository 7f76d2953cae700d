// internal/browser/playwright.go
package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

const installTimeout = 5 * time.Minute

// PlaywrightDriver is the production Driver backed by playwright-go and
// Chromium. Driver output is discarded so it cannot interleave with our
// structured logs.
type PlaywrightDriver struct {
	pw      *playwright.Playwright
	install bool
	logger  *zap.Logger
}

var _ Driver = (*PlaywrightDriver)(nil)

// NewPlaywrightDriver builds the driver. When install is true, Start first
// downloads the Chromium build playwright pins.
func NewPlaywrightDriver(install bool, logger *zap.Logger) *PlaywrightDriver {
	return &PlaywrightDriver{
		install: install,
		logger:  logger.With(zap.String("component", "playwright_driver")),
	}
}

func runOptions() *playwright.RunOptions {
	return &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
}

// Start installs browsers if requested and boots the driver process.
func (d *PlaywrightDriver) Start(ctx context.Context) error {
	if d.install {
		if err := d.ensureInstallation(ctx); err != nil {
			return err
		}
	}

	pw, err := playwright.Run(runOptions())
	if err != nil {
		return fmt.Errorf("failed to start playwright driver: %w", err)
	}
	d.pw = pw
	d.logger.Info("Playwright driver started.")
	return nil
}

// ensureInstallation runs the blocking install under a deadline.
func (d *PlaywrightDriver) ensureInstallation(ctx context.Context) error {
	d.logger.Info("Verifying browser installation...")
	installCtx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- playwright.Install(runOptions())
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to install playwright browsers: %w", err)
		}
		return nil
	case <-installCtx.Done():
		return fmt.Errorf("timeout waiting for playwright installation: %w", installCtx.Err())
	}
}

// Stop shuts the driver process down.
func (d *PlaywrightDriver) Stop() error {
	if d.pw == nil {
		return nil
	}
	if err := d.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright driver: %w", err)
	}
	d.pw = nil
	return nil
}

// Launch starts a throwaway browser with a fresh in-memory context.
func (d *PlaywrightDriver) Launch(ctx context.Context, spec LaunchSpec) (Browser, BrowserContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if d.pw == nil {
		return nil, nil, ErrNotStarted
	}

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(spec.Headless),
		Args:     launchArgs(spec.Args),
		Proxy:    toProxy(spec.Proxy),
	}
	b, err := d.pw.Chromium.Launch(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bc, err := b.NewContext(playwright.BrowserNewContextOptions{})
	if err != nil {
		b.Close()
		return nil, nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &pwBrowser{b: b}, &pwContext{c: bc}, nil
}

// LaunchPersistent starts a browser bound to the given user data directory.
func (d *PlaywrightDriver) LaunchPersistent(ctx context.Context, userDataDir string, spec LaunchSpec) (BrowserContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.pw == nil {
		return nil, ErrNotStarted
	}

	opts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(spec.Headless),
		Args:     launchArgs(spec.Args),
		Proxy:    toProxy(spec.Proxy),
	}
	bc, err := d.pw.Chromium.LaunchPersistentContext(userDataDir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch persistent context: %w", err)
	}

	return &pwContext{c: bc}, nil
}

// launchArgs prepends the stability flags containers need.
func launchArgs(extra []string) []string {
	args := []string{
		"--disable-gpu",
		"--no-sandbox",
		"--disable-dev-shm-usage",
	}
	return append(args, extra...)
}

func toProxy(p *schemas.ProxySettings) *playwright.Proxy {
	if p == nil {
		return nil
	}
	proxy := &playwright.Proxy{Server: p.Server}
	if p.Username != "" {
		proxy.Username = playwright.String(p.Username)
	}
	if p.Password != "" {
		proxy.Password = playwright.String(p.Password)
	}
	if p.Bypass != "" {
		proxy.Bypass = playwright.String(p.Bypass)
	}
	return proxy
}

// -- Handle adapters --

type pwBrowser struct {
	b playwright.Browser
}

func (w *pwBrowser) Close(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.b.Close()
}

type pwContext struct {
	c playwright.BrowserContext
}

func (w *pwContext) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := w.c.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return &pwPage{p: p}, nil
}

func (w *pwContext) SetBasicAuth(ctx context.Context, username, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if username == "" && password == "" {
		return w.c.SetExtraHTTPHeaders(map[string]string{})
	}
	token := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return w.c.SetExtraHTTPHeaders(map[string]string{
		"Authorization": "Basic " + token,
	})
}

func (w *pwContext) Close(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.c.Close()
}

type pwPage struct {
	p playwright.Page
}

func (w *pwPage) Goto(ctx context.Context, url string, opts GotoOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pwOpts := playwright.PageGotoOptions{}
	if opts.WaitUntil != "" {
		state := playwright.WaitUntilState(string(opts.WaitUntil))
		pwOpts.WaitUntil = &state
	}
	if opts.TimeoutMS > 0 {
		pwOpts.Timeout = playwright.Float(opts.TimeoutMS)
	}
	_, err := w.p.Goto(url, pwOpts)
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (w *pwPage) URL() string { return w.p.URL() }

func (w *pwPage) IsClosed() bool { return w.p.IsClosed() }

func (w *pwPage) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if arg == nil {
		return w.p.Evaluate(script)
	}
	return w.p.Evaluate(script, arg)
}

func (w *pwPage) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return w.p.Content()
}

func (w *pwPage) InnerText(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return w.p.InnerText(selector)
}

func (w *pwPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return w.p.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
		Type:     playwright.ScreenshotTypePng,
	})
}

func (w *pwPage) MouseMove(ctx context.Context, x, y float64, steps int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.p.Mouse().Move(x, y, playwright.MouseMoveOptions{Steps: playwright.Int(steps)})
}

func (w *pwPage) MouseClick(ctx context.Context, x, y float64, button string, clickCount int, delayMS float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	btn := playwright.MouseButton(button)
	return w.p.Mouse().Click(x, y, playwright.MouseClickOptions{
		Button:     &btn,
		ClickCount: playwright.Int(clickCount),
		Delay:      playwright.Float(delayMS),
	})
}

func (w *pwPage) MouseWheel(ctx context.Context, dx, dy float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.p.Mouse().Wheel(dx, dy)
}

func (w *pwPage) Close(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.p.Close()
}
