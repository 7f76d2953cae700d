// internal/mocks/mocks.go

// Package mocks provides scripted in-memory doubles for the browser driver
// surface. Packages above the core (server, service, crawler) exercise
// their orchestration logic against these without launching a real browser.
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/xkilldash9x/pagepilot/internal/browser"
)

// -- Driver --

// Driver is a scripted browser.Driver. Zero value is usable; set the
// exported knobs before handing it to a manager.
type Driver struct {
	mu sync.Mutex

	// StartErr fails Start when set.
	StartErr error
	// LaunchErr fails Launch and LaunchPersistent when set.
	LaunchErr error
	// ScriptPage runs against each page any of the driver's contexts opens,
	// before the page is returned. It is consulted at open time, so tests
	// may install it after the contexts already exist.
	ScriptPage func(*Page)

	started        bool
	stopped        bool
	launches       []browser.LaunchSpec
	persistentDirs []string
	contexts       []*BrowserContext
	browsers       []*Browser
}

func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.StartErr != nil {
		return d.StartErr
	}
	d.started = true
	return nil
}

func (d *Driver) Launch(ctx context.Context, spec browser.LaunchSpec) (browser.Browser, browser.BrowserContext, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.LaunchErr != nil {
		return nil, nil, d.LaunchErr
	}
	d.launches = append(d.launches, spec)
	b := &Browser{}
	bc := &BrowserContext{scriptSource: d}
	d.browsers = append(d.browsers, b)
	d.contexts = append(d.contexts, bc)
	return b, bc, nil
}

func (d *Driver) LaunchPersistent(ctx context.Context, userDataDir string, spec browser.LaunchSpec) (browser.BrowserContext, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.LaunchErr != nil {
		return nil, d.LaunchErr
	}
	d.launches = append(d.launches, spec)
	d.persistentDirs = append(d.persistentDirs, userDataDir)
	bc := &BrowserContext{scriptSource: d}
	d.contexts = append(d.contexts, bc)
	return bc, nil
}

func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return nil
}

func (d *Driver) Started() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

func (d *Driver) Stopped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopped
}

// Launches returns the specs passed to Launch and LaunchPersistent in order.
func (d *Driver) Launches() []browser.LaunchSpec {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]browser.LaunchSpec(nil), d.launches...)
}

// PersistentDirs returns the user data directories of persistent launches.
func (d *Driver) PersistentDirs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.persistentDirs...)
}

// Contexts returns every context the driver has handed out.
func (d *Driver) Contexts() []*BrowserContext {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*BrowserContext(nil), d.contexts...)
}

func (d *Driver) pageScript() func(*Page) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ScriptPage
}

// -- Browser --

// Browser is a fake process handle.
type Browser struct {
	mu sync.Mutex

	CloseErr error

	closed bool
}

func (b *Browser) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return b.CloseErr
}

func (b *Browser) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// -- BrowserContext --

// BrowserContext is a fake cookie/storage universe that mints fake pages.
type BrowserContext struct {
	mu sync.Mutex

	NewPageErr error
	CloseErr   error
	// ScriptPage runs against each page the context opens, before the page
	// is returned. Contexts minted by a Driver fall back to the driver's
	// ScriptPage when this is nil.
	ScriptPage func(*Page)

	scriptSource *Driver

	closed bool
	pages  []*Page
	auth   []string
}

func (c *BrowserContext) NewPage(ctx context.Context) (browser.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.NewPageErr != nil {
		return nil, c.NewPageErr
	}
	p := &Page{}
	script := c.ScriptPage
	if script == nil && c.scriptSource != nil {
		script = c.scriptSource.pageScript()
	}
	if script != nil {
		script(p)
	}
	c.pages = append(c.pages, p)
	return p, nil
}

func (c *BrowserContext) SetBasicAuth(ctx context.Context, username, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth = append(c.auth, username+":"+password)
	return nil
}

func (c *BrowserContext) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return c.CloseErr
}

func (c *BrowserContext) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Pages returns every page the context has opened, closed ones included.
func (c *BrowserContext) Pages() []*Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Page(nil), c.pages...)
}

// OpenPages counts pages that have not been closed.
func (c *BrowserContext) OpenPages() int {
	c.mu.Lock()
	pages := append([]*Page(nil), c.pages...)
	c.mu.Unlock()
	n := 0
	for _, p := range pages {
		if !p.IsClosed() {
			n++
		}
	}
	return n
}

// Auth returns the recorded SetBasicAuth calls as "user:pass" strings.
func (c *BrowserContext) Auth() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.auth...)
}

// -- Page --

// Page is a fake tab. The exported fields script its behavior; the recorded
// calls are read back through the accessor methods.
type Page struct {
	mu sync.Mutex

	GotoErr     error
	CloseErr    error
	ContentBody string
	// ContentFn overrides ContentBody when set, so tests can serve a
	// different document per call.
	ContentFn func() (string, error)
	TextBody  string
	Shot      []byte
	// EvaluateFn answers Evaluate calls. Leaving it nil makes Evaluate fail,
	// which surfaces unscripted probes instead of hiding them.
	EvaluateFn func(script string, arg any) (any, error)

	url    string
	closed bool
	gotos  []string
	moves  []string
	clicks []string
	wheels []string
}

func (p *Page) Goto(ctx context.Context, url string, opts browser.GotoOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.GotoErr != nil {
		return p.GotoErr
	}
	p.gotos = append(p.gotos, url)
	p.url = url
	return nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	p.mu.Lock()
	fn := p.EvaluateFn
	p.mu.Unlock()
	if fn == nil {
		return nil, fmt.Errorf("no evaluate handler installed")
	}
	return fn(script, arg)
}

func (p *Page) Content(ctx context.Context) (string, error) {
	p.mu.Lock()
	fn := p.ContentFn
	body := p.ContentBody
	p.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return body, nil
}

func (p *Page) InnerText(ctx context.Context, selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.TextBody, nil
}

func (p *Page) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Shot == nil {
		return nil, fmt.Errorf("no screenshot scripted")
	}
	return p.Shot, nil
}

func (p *Page) MouseMove(ctx context.Context, x, y float64, steps int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.moves = append(p.moves, fmt.Sprintf("%g,%g,%d", x, y, steps))
	return nil
}

func (p *Page) MouseClick(ctx context.Context, x, y float64, button string, clickCount int, delayMS float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicks = append(p.clicks, fmt.Sprintf("%g,%g,%s,%d", x, y, button, clickCount))
	return nil
}

func (p *Page) MouseWheel(ctx context.Context, dx, dy float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wheels = append(p.wheels, fmt.Sprintf("%g,%g", dx, dy))
	return nil
}

func (p *Page) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.CloseErr
}

// MarkClosed flips the page dead without going through Close, the way a
// crashed renderer would.
func (p *Page) MarkClosed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *Page) Gotos() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.gotos...)
}

func (p *Page) Moves() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.moves...)
}

func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

func (p *Page) Wheels() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.wheels...)
}

// Interface compliance checks.
var (
	_ browser.Driver         = (*Driver)(nil)
	_ browser.Browser        = (*Browser)(nil)
	_ browser.BrowserContext = (*BrowserContext)(nil)
	_ browser.Page           = (*Page)(nil)
)
