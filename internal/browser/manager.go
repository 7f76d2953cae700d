// internal/browser/manager.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/config"
)

// Manager owns every live browser profile. It launches the reserved default
// profile on Start, provisions named persistent profiles on demand, hands
// out ephemeral ones, and tears everything down on Shutdown.
type Manager struct {
	driver Driver
	cfg    config.Interface
	logger *zap.Logger

	mu       sync.RWMutex
	profiles map[string]*Profile
	started  bool

	provision singleflight.Group
}

func NewManager(driver Driver, cfg config.Interface, logger *zap.Logger) *Manager {
	return &Manager{
		driver:   driver,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "browser_manager")),
		profiles: make(map[string]*Profile),
	}
}

// Start boots the driver and launches the default persistent profile. The
// manager accepts no other calls until Start has succeeded.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.driver.Start(ctx); err != nil {
		return fmt.Errorf("start browser driver: %w", err)
	}

	p, err := m.launchPersistent(ctx, schemas.DefaultProfileID, nil)
	if err != nil {
		m.driver.Stop()
		return fmt.Errorf("launch default profile: %w", err)
	}

	m.mu.Lock()
	m.profiles[schemas.DefaultProfileID] = p
	m.started = true
	m.mu.Unlock()

	m.logger.Info("Browser manager started.",
		zap.String("profiles_root", m.cfg.Browser().ProfilesRoot))
	return nil
}

// CreateProfile launches a new profile. A non-empty id names a persistent
// profile backed by a user data directory under the profiles root; an empty
// id launches an ephemeral profile under a generated id with no disk state.
func (m *Manager) CreateProfile(ctx context.Context, id string, proxy *schemas.ProxySettings) (*Profile, error) {
	if !m.isStarted() {
		return nil, ErrNotStarted
	}

	if id == "" {
		return m.createEphemeral(ctx, proxy)
	}

	if err := validateProfileID(id); err != nil {
		return nil, err
	}

	m.mu.RLock()
	_, exists := m.profiles[id]
	m.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("%q: %w", id, ErrProfileExists)
	}

	p, err := m.launchPersistent(ctx, id, proxy)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if _, exists := m.profiles[id]; exists {
		m.mu.Unlock()
		p.teardown(ctx, m.cfg.Shutdown().StepTimeout)
		return nil, fmt.Errorf("%q: %w", id, ErrProfileExists)
	}
	m.profiles[id] = p
	m.mu.Unlock()

	m.logger.Info("Profile created.", zap.String("browser_id", id), zap.Bool("persistent", true))
	return p, nil
}

// GetProfile returns a live profile by id.
func (m *Manager) GetProfile(id string) (*Profile, error) {
	if !m.isStarted() {
		return nil, ErrNotStarted
	}

	m.mu.RLock()
	p, ok := m.profiles[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrProfileNotFound)
	}
	return p, nil
}

// GetOrCreateProfile resolves the profile a request addressed. An empty id
// means the default profile. Unknown ids are provisioned as persistent
// profiles exactly once, no matter how many requests ask at the same time.
func (m *Manager) GetOrCreateProfile(ctx context.Context, id string) (*Profile, error) {
	if id == "" {
		id = schemas.DefaultProfileID
	}

	if p, err := m.GetProfile(id); err == nil || !errors.Is(err, ErrProfileNotFound) {
		return p, err
	}

	v, err, _ := m.provision.Do(id, func() (any, error) {
		if p, err := m.GetProfile(id); err == nil {
			return p, nil
		}
		return m.CreateProfile(ctx, id, nil)
	})
	if err != nil {
		if errors.Is(err, ErrProfileExists) {
			// Another caller created it between our flights.
			return m.GetProfile(id)
		}
		return nil, err
	}
	return v.(*Profile), nil
}

// ListProfiles returns the ids of all live profiles in sorted order.
func (m *Manager) ListProfiles() ([]string, error) {
	if !m.isStarted() {
		return nil, ErrNotStarted
	}

	m.mu.RLock()
	ids := make([]string, 0, len(m.profiles))
	for id := range m.profiles {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	sort.Strings(ids)
	return ids, nil
}

// CloseProfile tears one profile down and forgets it. The default profile
// is reserved and cannot be closed. The profile leaves the live set only
// after every teardown step has been attempted.
func (m *Manager) CloseProfile(ctx context.Context, id string) error {
	if !m.isStarted() {
		return ErrNotStarted
	}
	if id == schemas.DefaultProfileID {
		return ErrDefaultProfile
	}

	m.mu.RLock()
	p, ok := m.profiles[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%q: %w", id, ErrProfileNotFound)
	}

	p.teardown(ctx, m.cfg.Shutdown().StepTimeout)

	m.mu.Lock()
	delete(m.profiles, id)
	m.mu.Unlock()

	m.logger.Info("Profile closed.", zap.String("browser_id", id))
	return nil
}

// Shutdown tears down every profile concurrently, then stops the driver.
// Teardown as a whole gets the configured global deadline; when it passes,
// whatever is still hanging is abandoned. A leaked process beats a server
// that never exits.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = false
	profiles := m.profiles
	m.profiles = make(map[string]*Profile)
	m.mu.Unlock()

	gctx, cancel := context.WithTimeout(ctx, m.cfg.Shutdown().GlobalTimeout)
	defer cancel()

	g := new(errgroup.Group)
	for _, p := range profiles {
		p := p
		g.Go(func() error {
			p.teardown(gctx, m.cfg.Shutdown().StepTimeout)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-gctx.Done():
		m.logger.Warn("Global shutdown deadline passed; abandoning remaining teardowns.")
	}

	if err := m.driver.Stop(); err != nil {
		m.logger.Warn("Driver stop failed.", zap.Error(err))
		return err
	}

	m.logger.Info("Browser manager stopped.")
	return nil
}

func (m *Manager) isStarted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.started
}

func (m *Manager) createEphemeral(ctx context.Context, proxy *schemas.ProxySettings) (*Profile, error) {
	id := uuid.New().String()

	b, bc, err := m.driver.Launch(ctx, m.launchSpec(proxy))
	if err != nil {
		return nil, fmt.Errorf("launch ephemeral browser: %w", err)
	}
	p := newProfile(id, false, "", proxy, b, bc, m.logger)

	m.mu.Lock()
	m.profiles[id] = p
	m.mu.Unlock()

	m.logger.Info("Profile created.", zap.String("browser_id", id), zap.Bool("persistent", false))
	return p, nil
}

func (m *Manager) launchPersistent(ctx context.Context, id string, proxy *schemas.ProxySettings) (*Profile, error) {
	dir := filepath.Join(m.cfg.Browser().ProfilesRoot, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create profile directory: %w", err)
	}
	ReconcileProfileLocks(dir, m.logger)

	bc, err := m.driver.LaunchPersistent(ctx, dir, m.launchSpec(proxy))
	if err != nil {
		return nil, fmt.Errorf("launch persistent browser %q: %w", id, err)
	}
	return newProfile(id, true, dir, proxy, nil, bc, m.logger), nil
}

func (m *Manager) launchSpec(proxy *schemas.ProxySettings) LaunchSpec {
	return LaunchSpec{
		Headless: m.cfg.Browser().Headless,
		Args:     m.cfg.Browser().Args,
		Proxy:    proxy,
	}
}

// validateProfileID rejects ids that could escape the profiles root or
// collide with filesystem special names. Letters, digits, '-', '_' and '.'
// are allowed.
func validateProfileID(id string) error {
	if id == "." || id == ".." {
		return Validationf("profile id %q is reserved", id)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return Validationf("profile id %q contains invalid character %q", id, r)
		}
	}
	return nil
}
