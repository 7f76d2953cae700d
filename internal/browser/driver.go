// internal/browser/driver.go
package browser

import (
	"context"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// Driver abstracts the automation library behind the narrow surface the
// manager needs. The single production implementation is the playwright
// binding; tests substitute scripted fakes.
type Driver interface {
	// Start boots the automation runtime. It is the only failure in the
	// system treated as fatal.
	Start(ctx context.Context) error

	// Launch starts a throwaway browser process with an in-memory context.
	Launch(ctx context.Context, spec LaunchSpec) (Browser, BrowserContext, error)

	// LaunchPersistent starts a browser process bound to an on-disk user
	// data directory. The returned context owns the process; there is no
	// separate Browser handle to close.
	LaunchPersistent(ctx context.Context, userDataDir string, spec LaunchSpec) (BrowserContext, error)

	// Stop shuts the automation runtime down.
	Stop() error
}

// LaunchSpec carries the per-profile launch parameters.
type LaunchSpec struct {
	Headless bool
	Args     []string
	Proxy    *schemas.ProxySettings
}

// Browser is a handle to a launched browser process.
type Browser interface {
	Close(ctx context.Context) error
}

// BrowserContext is one isolated cookie/storage universe inside a browser
// process.
type BrowserContext interface {
	NewPage(ctx context.Context) (Page, error)

	// SetBasicAuth installs an HTTP basic-auth header on every request the
	// context makes. Empty credentials clear it.
	SetBasicAuth(ctx context.Context, username, password string) error

	Close(ctx context.Context) error
}

// GotoOptions tunes a navigation. TimeoutMS of zero keeps the driver default.
type GotoOptions struct {
	WaitUntil schemas.WaitUntil
	TimeoutMS float64
}

// Page is a single tab. Operations against one page are sequential per
// caller; the handle carries no internal locking.
type Page interface {
	Goto(ctx context.Context, url string, opts GotoOptions) error
	URL() string

	// IsClosed is the cheap, side-effect-free liveness probe the registry
	// uses to heal stale entries.
	IsClosed() bool

	// Evaluate runs a script in the page. A non-nil arg is passed to the
	// script when it is a function expression.
	Evaluate(ctx context.Context, script string, arg any) (any, error)

	Content(ctx context.Context) (string, error)
	InnerText(ctx context.Context, selector string) (string, error)
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)

	MouseMove(ctx context.Context, x, y float64, steps int) error
	MouseClick(ctx context.Context, x, y float64, button string, clickCount int, delayMS float64) error
	MouseWheel(ctx context.Context, dx, dy float64) error

	Close(ctx context.Context) error
}
