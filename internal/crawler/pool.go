// internal/crawler/pool.go
package crawler

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Pool owns a fixed set of controller sessions and hands them out through a
// buffered channel, so at most size pages are being worked on at once and
// every page reuses a warm session instead of paying for a fresh one.
type Pool struct {
	client *Client
	size   int
	logger *zap.Logger

	mu   sync.Mutex
	ids  []string
	free chan string
}

// NewPool sizes the pool; sessions are opened by Start.
func NewPool(client *Client, size int, logger *zap.Logger) *Pool {
	return &Pool{
		client: client,
		size:   size,
		logger: logger.With(zap.String("component", "session_pool")),
		free:   make(chan string, size),
	}
}

// Start opens the pooled sessions. Individual failures are tolerated and the
// crawl proceeds with whatever came up; Start fails only when not a single
// session could be opened.
func (p *Pool) Start(ctx context.Context) error {
	p.logger.Info("Initializing session pool.", zap.Int("size", p.size))

	for i := 0; i < p.size; i++ {
		id, err := p.client.StartSession(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Warn("Failed to start pooled session.", zap.Int("index", i), zap.Error(err))
			continue
		}
		p.mu.Lock()
		p.ids = append(p.ids, id)
		p.mu.Unlock()
		p.free <- id
	}

	n := p.Len()
	if n == 0 {
		return fmt.Errorf("no controller sessions could be started")
	}
	p.logger.Info("Session pool ready.", zap.Int("sessions", n))
	return nil
}

// Acquire blocks until a session is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (string, error) {
	select {
	case id := <-p.free:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Release returns a session to the pool.
func (p *Pool) Release(id string) {
	p.free <- id
}

// Len reports how many sessions the pool holds.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ids)
}

// Close ends every pooled session. Failures are logged and skipped so
// shutdown always completes.
func (p *Pool) Close(ctx context.Context) {
	p.mu.Lock()
	ids := p.ids
	p.ids = nil
	p.mu.Unlock()

	if len(ids) == 0 {
		return
	}
	for _, id := range ids {
		if err := p.client.EndSession(ctx, id); err != nil {
			p.logger.Warn("Failed to end pooled session.", zap.String("session_id", id), zap.Error(err))
		}
	}
	p.logger.Info("Session pool closed.", zap.Int("sessions", len(ids)))
}
