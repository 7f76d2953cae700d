// internal/crawler/crawler.go

// Package crawler walks a site breadth-first through a running pagepilot
// controller, captures the text of every page over a pool of reused browser
// sessions, and extracts product records with an OpenAI-compatible model.
package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/config"
)

// Crawler drives one crawl: a breadth-first walk bounded by MaxDepth,
// restricted to the home URL's host, deduplicated on normalized URLs.
type Crawler struct {
	cfg     config.CrawlerConfig
	client  *Client
	extract *Extractor
	sink    *Sink
	logger  *zap.Logger

	pool    *Pool
	host    string
	visited map[string]struct{}
}

// New wires a crawler from its parts. The session pool is created and torn
// down inside Run.
func New(cfg config.CrawlerConfig, client *Client, extractor *Extractor, sink *Sink, logger *zap.Logger) *Crawler {
	return &Crawler{
		cfg:     cfg,
		client:  client,
		extract: extractor,
		sink:    sink,
		logger:  logger.With(zap.String("component", "crawler")),
	}
}

// Run crawls the site starting at homeURL. Page-level failures are logged
// and skipped; Run only fails when the pool cannot come up or the context
// is cancelled.
func (c *Crawler) Run(ctx context.Context, homeURL string) error {
	home, err := url.Parse(homeURL)
	if err != nil {
		return fmt.Errorf("parse home url: %w", err)
	}
	if home.Scheme == "" || home.Host == "" {
		return fmt.Errorf("home url %q must be absolute", homeURL)
	}
	c.host = home.Host
	c.visited = map[string]struct{}{homeURL: {}}

	c.pool = NewPool(c.client, c.cfg.Concurrency, c.logger)
	defer func() {
		// Ends sessions even when the run context is already cancelled.
		closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		c.pool.Close(closeCtx)
	}()
	if err := c.pool.Start(ctx); err != nil {
		return err
	}

	current := []string{homeURL}
	for depth := 0; depth < c.cfg.MaxDepth && len(current) > 0; depth++ {
		c.logger.Info("Crawling depth.", zap.Int("depth", depth+1), zap.Int("pages", len(current)))

		if err := c.captureLevel(ctx, current); err != nil {
			return err
		}

		// The deepest level's links would never be visited, so skip the
		// harvest round trip for it.
		if depth == c.cfg.MaxDepth-1 {
			break
		}
		current, err = c.harvestLevel(ctx, current)
		if err != nil {
			return err
		}
	}

	c.logger.Info("Crawl complete.", zap.Int("results", c.sink.Len()), zap.String("output", c.sink.Path()))
	return nil
}

// -- Page capture --

func (c *Crawler) captureLevel(ctx context.Context, urls []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.pool.Len())
	for _, pageURL := range urls {
		g.Go(func() error {
			if err := c.capturePage(gctx, pageURL); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.logger.Warn("Page processing failed.", zap.String("url", pageURL), zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

// capturePage scrolls a page to the bottom, captures its text, and feeds the
// text to the extractor. The session is released before the model call so it
// can serve another page in the meantime.
func (c *Crawler) capturePage(ctx context.Context, pageURL string) error {
	c.logger.Info("Processing page.", zap.String("url", pageURL))

	sessionID, err := c.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	text, err := c.client.Capture(ctx, sessionID, captureRequest(pageURL))
	c.pool.Release(sessionID)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}

	product, err := c.extract.Extract(ctx, text, pageURL)
	if err != nil {
		return err
	}
	if product == nil {
		return nil
	}
	if err := c.sink.Add(product); err != nil {
		return err
	}
	c.logger.Info("Found product.", zap.Any("name", product["name"]), zap.String("url", pageURL))
	return nil
}

func captureRequest(pageURL string) schemas.InteractRequest {
	return schemas.InteractRequest{
		URL: pageURL,
		Actions: schemas.ActionList{
			schemas.ScrollToBottomAction{StepPixels: 500, StepDelay: 1.5, Timeout: 10},
			schemas.TextAction{},
		},
	}
}

// -- Link harvest --

// harvestLevel collects the next depth's URLs from every page of the current
// one. Already-visited URLs are claimed here so two pages linking to the
// same place enqueue it once.
func (c *Crawler) harvestLevel(ctx context.Context, urls []string) ([]string, error) {
	c.logger.Info("Harvesting links for the next depth.", zap.Int("pages", len(urls)))

	var (
		mu   sync.Mutex
		next []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.pool.Len())
	for _, pageURL := range urls {
		g.Go(func() error {
			links, err := c.harvestPage(gctx, pageURL)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.logger.Warn("Link harvest failed.", zap.String("url", pageURL), zap.Error(err))
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for _, link := range links {
				if _, seen := c.visited[link]; seen {
					continue
				}
				c.visited[link] = struct{}{}
				next = append(next, link)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return next, nil
}

func (c *Crawler) harvestPage(ctx context.Context, pageURL string) ([]string, error) {
	sessionID, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer c.pool.Release(sessionID)

	results, err := c.client.Selectors(ctx, sessionID, linkRequest(pageURL))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	var links []string
	for _, selector := range results {
		if selector.Name != "links" {
			continue
		}
		for _, result := range selector.Results {
			for _, href := range result.Values {
				if link, ok := c.resolveLink(base, href); ok {
					links = append(links, link)
				}
			}
		}
	}
	return links, nil
}

func linkRequest(pageURL string) schemas.SelectorsRequest {
	req := schemas.DefaultSelectorsRequest()
	req.URL = pageURL
	req.Timeout = 60000
	req.Selectors = []schemas.SelectorSpec{{
		Name:    "links",
		Type:    schemas.SelectorCSS,
		Value:   "a",
		Actions: schemas.ActionList{schemas.AttributeAction{Name: "href"}},
	}}
	return req
}

// resolveLink turns one href into an absolute, normalized same-host URL.
// Non-navigational schemes and bare fragments are dropped.
func (c *Crawler) resolveLink(base *url.URL, href string) (string, bool) {
	if href == "" {
		return "", false
	}
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "#"} {
		if strings.HasPrefix(href, prefix) {
			return "", false
		}
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Host != c.host {
		return "", false
	}
	return normalizeURL(abs), true
}

// normalizeURL strips the query and fragment so variants of one path
// collapse into a single visit.
func normalizeURL(u *url.URL) string {
	return fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, u.Path)
}
