// internal/browser/registry.go
package browser

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionRegistry maps session ids to live pages inside a single profile.
// Named sessions survive across requests; ad-hoc sessions (no id supplied)
// live for exactly one lease.
type SessionRegistry struct {
	mu    sync.Mutex
	pages map[string]Page

	owner  BrowserContext
	logger *zap.Logger
}

func newSessionRegistry(owner BrowserContext, logger *zap.Logger) *SessionRegistry {
	return &SessionRegistry{
		pages:  make(map[string]Page),
		owner:  owner,
		logger: logger,
	}
}

// Lease is a borrowed page. Callers must Release it when the request is
// done; for named sessions that is a no-op, for ad-hoc sessions it closes
// the page.
type Lease struct {
	Page      Page
	SessionID string
	AdHoc     bool

	registry *SessionRegistry
	once     sync.Once
}

// Release returns the lease. Ad-hoc pages are unregistered and closed;
// named sessions stay open for the next caller. Safe to call twice.
func (l *Lease) Release(ctx context.Context) {
	l.once.Do(func() {
		if !l.AdHoc {
			return
		}
		l.registry.removeAndClose(ctx, l.SessionID, l.Page)
	})
}

// Acquire hands out the page for sessionID, creating it on first use. An
// empty id means an ad-hoc session: a fresh page under a generated id that
// Release will close. A registered page that reports closed (the user closed
// the tab, or the renderer died) is silently replaced.
func (r *SessionRegistry) Acquire(ctx context.Context, sessionID string) (*Lease, error) {
	adHoc := false
	if sessionID == "" {
		sessionID = uuid.New().String()
		adHoc = true
	}

	r.mu.Lock()
	if page, ok := r.pages[sessionID]; ok {
		if !page.IsClosed() {
			r.mu.Unlock()
			return &Lease{Page: page, SessionID: sessionID, AdHoc: false, registry: r}, nil
		}
		delete(r.pages, sessionID)
		r.logger.Debug("Replacing dead session page.", zap.String("session_id", sessionID))
	}
	r.mu.Unlock()

	page, err := r.owner.NewPage(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if cur, ok := r.pages[sessionID]; ok && !cur.IsClosed() {
		// Lost a first-use race; keep the page that won.
		r.mu.Unlock()
		if cerr := page.Close(ctx); cerr != nil {
			r.logger.Debug("Could not close redundant page.", zap.Error(cerr))
		}
		return &Lease{Page: cur, SessionID: sessionID, AdHoc: false, registry: r}, nil
	}
	r.pages[sessionID] = page
	r.mu.Unlock()

	return &Lease{Page: page, SessionID: sessionID, AdHoc: adHoc, registry: r}, nil
}

// StartSession opens a page under a fresh generated id and keeps it
// registered until EndSession.
func (r *SessionRegistry) StartSession(ctx context.Context) (string, error) {
	page, err := r.owner.NewPage(ctx)
	if err != nil {
		return "", err
	}
	sessionID := uuid.New().String()

	r.mu.Lock()
	r.pages[sessionID] = page
	r.mu.Unlock()

	r.logger.Info("Session started.", zap.String("session_id", sessionID))
	return sessionID, nil
}

// EndSession closes and forgets the named session. It reports whether the
// session existed; ending an unknown session is not an error.
func (r *SessionRegistry) EndSession(ctx context.Context, sessionID string) bool {
	r.mu.Lock()
	page, ok := r.pages[sessionID]
	if ok {
		delete(r.pages, sessionID)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	if err := page.Close(ctx); err != nil {
		r.logger.Warn("Session page close failed.",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	return true
}

// SessionIDs returns the registered ids in sorted order.
func (r *SessionRegistry) SessionIDs() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.pages))
	for id := range r.pages {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	sort.Strings(ids)
	return ids
}

// CloseAll empties the registry and closes every page. The registry is
// cleared before any page is touched, so a hung close never wedges the map.
func (r *SessionRegistry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	pages := r.pages
	r.pages = make(map[string]Page)
	r.mu.Unlock()

	var firstErr error
	for id, page := range pages {
		if err := page.Close(ctx); err != nil {
			r.logger.Warn("Page close failed.", zap.String("session_id", id), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *SessionRegistry) removeAndClose(ctx context.Context, sessionID string, page Page) {
	r.mu.Lock()
	if cur, ok := r.pages[sessionID]; ok && cur == page {
		delete(r.pages, sessionID)
	}
	r.mu.Unlock()

	if err := page.Close(ctx); err != nil {
		r.logger.Debug("Ad-hoc page close failed.",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}
