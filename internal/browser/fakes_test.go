// internal/browser/fakes_test.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// The fakes below implement the driver surface with scripted behavior so the
// manager, registry, dispatcher, interactor, and paginator can be exercised
// without a real browser.

type fakeDriver struct {
	mu sync.Mutex

	started bool
	stopped bool

	startErr  error
	launchErr error

	launches    []LaunchSpec
	persistDirs []string

	// blockClose makes every handle's Close wait for context cancellation,
	// simulating a hung browser.
	blockClose bool

	contexts []*fakeContext
	browsers []*fakeBrowser
}

func (d *fakeDriver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return d.startErr
	}
	d.started = true
	return nil
}

func (d *fakeDriver) Launch(ctx context.Context, spec LaunchSpec) (Browser, BrowserContext, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.launchErr != nil {
		return nil, nil, d.launchErr
	}
	d.launches = append(d.launches, spec)
	b := &fakeBrowser{blockClose: d.blockClose}
	c := newFakeContext(d.blockClose)
	d.browsers = append(d.browsers, b)
	d.contexts = append(d.contexts, c)
	return b, c, nil
}

func (d *fakeDriver) LaunchPersistent(ctx context.Context, userDataDir string, spec LaunchSpec) (BrowserContext, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.launchErr != nil {
		return nil, d.launchErr
	}
	d.launches = append(d.launches, spec)
	d.persistDirs = append(d.persistDirs, userDataDir)
	c := newFakeContext(d.blockClose)
	d.contexts = append(d.contexts, c)
	return c, nil
}

func (d *fakeDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return nil
}

func (d *fakeDriver) persistentLaunchCount(dir string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, got := range d.persistDirs {
		if got == dir {
			n++
		}
	}
	return n
}

type fakeBrowser struct {
	mu         sync.Mutex
	closed     bool
	closeErr   error
	blockClose bool
	onClose    func()
}

func (b *fakeBrowser) Close(ctx context.Context) error {
	if b.blockClose {
		<-ctx.Done()
		return ctx.Err()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.onClose != nil {
		b.onClose()
	}
	return b.closeErr
}

type fakeContext struct {
	mu         sync.Mutex
	closed     bool
	closeErr   error
	newPageErr error
	blockClose bool
	onClose    func()

	pages []*fakePage
	auth  []string // "user:pass" per SetBasicAuth call
}

func newFakeContext(blockClose bool) *fakeContext {
	return &fakeContext{blockClose: blockClose}
}

func (c *fakeContext) NewPage(ctx context.Context) (Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.newPageErr != nil {
		return nil, c.newPageErr
	}
	p := &fakePage{id: len(c.pages), blockClose: c.blockClose}
	c.pages = append(c.pages, p)
	return p, nil
}

func (c *fakeContext) SetBasicAuth(ctx context.Context, username, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth = append(c.auth, username+":"+password)
	return nil
}

func (c *fakeContext) Close(ctx context.Context) error {
	if c.blockClose {
		<-ctx.Done()
		return ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.onClose != nil {
		c.onClose()
	}
	return c.closeErr
}

func (c *fakeContext) openPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, p := range c.pages {
		if !p.IsClosed() {
			n++
		}
	}
	return n
}

type fakePage struct {
	mu sync.Mutex

	id         int
	closed     bool
	closeErr   error
	blockClose bool
	onClose    func()

	currentURL string
	gotos      []string

	content   string
	contentFn func() (string, error)

	innerText string
	shot      []byte

	evaluateFn func(script string, arg any) (any, error)

	moves  []string
	clicks []string
	wheels []string
}

func (p *fakePage) Goto(ctx context.Context, url string, opts GotoOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gotos = append(p.gotos, url)
	p.currentURL = url
	return nil
}

func (p *fakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentURL
}

func (p *fakePage) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePage) markClosed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *fakePage) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	p.mu.Lock()
	fn := p.evaluateFn
	p.mu.Unlock()
	if fn == nil {
		return nil, fmt.Errorf("no evaluate handler installed")
	}
	return fn(script, arg)
}

func (p *fakePage) Content(ctx context.Context) (string, error) {
	p.mu.Lock()
	fn := p.contentFn
	content := p.content
	p.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return content, nil
}

func (p *fakePage) InnerText(ctx context.Context, selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.innerText, nil
}

func (p *fakePage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shot == nil {
		return nil, fmt.Errorf("no screenshot scripted")
	}
	return p.shot, nil
}

func (p *fakePage) MouseMove(ctx context.Context, x, y float64, steps int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.moves = append(p.moves, fmt.Sprintf("%g,%g,%d", x, y, steps))
	return nil
}

func (p *fakePage) MouseClick(ctx context.Context, x, y float64, button string, clickCount int, delayMS float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicks = append(p.clicks, fmt.Sprintf("%g,%g,%s,%d", x, y, button, clickCount))
	return nil
}

func (p *fakePage) MouseWheel(ctx context.Context, dx, dy float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wheels = append(p.wheels, fmt.Sprintf("%g,%g", dx, dy))
	return nil
}

func (p *fakePage) Close(ctx context.Context) error {
	if p.blockClose {
		<-ctx.Done()
		return ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.onClose != nil {
		p.onClose()
	}
	return p.closeErr
}

// newTestLogger builds a zap logger that writes through the test runner so
// output from parallel tests stays attached to the right test.
func newTestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(&testingWriter{t: t}),
		zapcore.DebugLevel,
	)
	return zap.New(core).With(zap.String("test", t.Name()))
}

type testingWriter struct {
	t *testing.T
}

func (w *testingWriter) Write(p []byte) (n int, err error) {
	// t.Log panics when the test already finished; swallow late writes.
	defer func() {
		if recover() != nil {
			n, err = len(p), nil
		}
	}()
	w.t.Log(string(p))
	return len(p), nil
}
