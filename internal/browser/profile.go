// internal/browser/profile.go
package browser

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// Profile is one live browser instance: a launched process (persistent or
// throwaway), its default automation context, and the sessions opened in it.
type Profile struct {
	id         string
	persistent bool
	path       string // empty for ephemeral profiles
	proxy      *schemas.ProxySettings

	browser Browser // nil for persistent launches; the context owns the process
	context BrowserContext
	session *SessionRegistry

	closeOnce sync.Once
	logger    *zap.Logger
}

func newProfile(id string, persistent bool, path string, proxy *schemas.ProxySettings, b Browser, bc BrowserContext, logger *zap.Logger) *Profile {
	plog := logger.With(zap.String("browser_id", id))
	return &Profile{
		id:         id,
		persistent: persistent,
		path:       path,
		proxy:      proxy,
		browser:    b,
		context:    bc,
		session:    newSessionRegistry(bc, plog),
		logger:     plog,
	}
}

// ID returns the profile identifier.
func (p *Profile) ID() string { return p.id }

// Persistent reports whether the profile keeps on-disk state.
func (p *Profile) Persistent() bool { return p.persistent }

// Path returns the on-disk user data directory, or "" for ephemeral
// profiles.
func (p *Profile) Path() string { return p.path }

// Sessions returns the profile's session registry.
func (p *Profile) Sessions() *SessionRegistry { return p.session }

// Context returns the profile's automation context, for operations that act
// on the whole context such as basic-auth credentials.
func (p *Profile) Context() BrowserContext { return p.context }

// teardown runs the close ladder: pages, then the context, then the process.
// Each step gets its own deadline; a failed or timed-out step is logged and
// the ladder moves on. Repeat calls are no-ops.
func (p *Profile) teardown(ctx context.Context, stepTimeout time.Duration) {
	p.closeOnce.Do(func() {
		steps := []struct {
			name string
			run  func(context.Context) error
		}{
			{"close_pages", p.session.CloseAll},
			{"close_context", p.context.Close},
			{"close_process", func(sc context.Context) error {
				if p.browser == nil {
					return nil
				}
				return p.browser.Close(sc)
			}},
		}

		for _, step := range steps {
			if err := runBounded(ctx, stepTimeout, step.run); err != nil {
				p.logger.Warn("Teardown step did not finish cleanly; continuing.",
					zap.String("step", step.name), zap.Error(err))
			}
		}
		p.logger.Info("Profile torn down.")
	})
}

// runBounded executes fn under its own deadline. When the deadline fires the
// call is abandoned, not cancelled: the underlying handle may be hung, and
// waiting on it is exactly what the ladder must never do.
func runBounded(parent context.Context, timeout time.Duration, fn func(context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-stepCtx.Done():
		return stepCtx.Err()
	}
}
