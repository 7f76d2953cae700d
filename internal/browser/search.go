// internal/browser/search.go
package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/config"
)

// Paginator walks search result pages until it has gathered the requested
// number of unique results or the result stream is exhausted.
type Paginator struct {
	cfg    config.SearchConfig
	logger *zap.Logger
}

func NewPaginator(cfg config.SearchConfig, logger *zap.Logger) *Paginator {
	return &Paginator{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "search")),
	}
}

// Search navigates the page to the results for query and harvests up to
// count unique results across pages. It stops early when no next-page
// control exists, when a whole page adds nothing new, or when the page
// ceiling is reached.
func (p *Paginator) Search(ctx context.Context, page Page, query string, count int) ([]schemas.SearchResult, error) {
	target := p.queryURL(query, count)
	if err := page.Goto(ctx, target, GotoOptions{WaitUntil: schemas.WaitUntilCommit}); err != nil {
		return nil, fmt.Errorf("open search page: %w", err)
	}
	if err := sleepCtx(ctx, p.cfg.SettleTime); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var results []schemas.SearchResult

	for pageNum := 1; ; pageNum++ {
		content, err := page.Content(ctx)
		if err != nil {
			return results, fmt.Errorf("read results page: %w", err)
		}

		added := p.harvest(content, count, seen, &results)
		p.logger.Debug("Results page parsed.",
			zap.Int("page", pageNum), zap.Int("added", added), zap.Int("total", len(results)))

		if len(results) >= count {
			break
		}
		if added == 0 {
			p.logger.Debug("Result stream plateaued.", zap.Int("page", pageNum))
			break
		}
		if pageNum >= p.cfg.MaxPages {
			p.logger.Debug("Page ceiling reached.", zap.Int("page", pageNum))
			break
		}

		control, err := p.clickNext(ctx, page)
		if err != nil {
			p.logger.Warn("Next-page probe failed; stopping.", zap.Error(err))
			break
		}
		if control == "" {
			p.logger.Debug("No next-page control.", zap.Int("page", pageNum))
			break
		}
		p.logger.Debug("Advanced to next results page.", zap.String("control", control))

		if err := sleepCtx(ctx, p.cfg.SettleTime); err != nil {
			return results, err
		}
	}

	return results, nil
}

func (p *Paginator) queryURL(query string, count int) string {
	return fmt.Sprintf("%s?q=%s&num=%d", p.cfg.BaseURL, url.QueryEscape(query), count)
}

// harvest parses one results page and appends the containers that carry a
// not-yet-seen primary link. It returns how many results this page added.
func (p *Paginator) harvest(content string, count int, seen map[string]struct{}, results *[]schemas.SearchResult) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		p.logger.Warn("Could not parse results page.", zap.Error(err))
		return 0
	}

	added := 0
	doc.Find("div[data-rpos]").EachWithBreak(func(_ int, container *goquery.Selection) bool {
		if len(*results) >= count {
			return false
		}

		anchor := container.Find("span a").First()
		link, ok := anchor.Attr("href")
		if !ok || link == "" {
			return true
		}
		if _, dup := seen[link]; dup {
			return true
		}
		seen[link] = struct{}{}

		*results = append(*results, schemas.SearchResult{
			Link:    link,
			Title:   strings.TrimSpace(anchor.Text()),
			Snippet: snippetText(container),
			Image:   thumbnail(container),
		})
		added++
		return true
	})
	return added
}

func (p *Paginator) clickNext(ctx context.Context, page Page) (string, error) {
	raw, err := page.Evaluate(ctx, probeClickNext, nil)
	if err != nil {
		return "", err
	}
	control, _ := raw.(string)
	return control, nil
}

// snippetText joins the texts of the container's spans that carry an <em>
// element. The check parses each span's inner HTML, so text that merely
// mentions "<em>" does not count as a highlight.
func snippetText(container *goquery.Selection) string {
	var parts []string
	container.Find("span").Each(func(_ int, span *goquery.Selection) {
		inner, err := span.Html()
		if err != nil || !containsEmElement(inner) {
			return
		}
		if text := strings.TrimSpace(span.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n")
}

// thumbnail returns the container's thumbnail when it is an inline data
// URI. External image URLs are dropped.
func thumbnail(container *goquery.Selection) string {
	img := container.Find("img[id^='dimg_']").First()
	if img.Length() == 0 {
		img = container.Find("img[data-deferred]").First()
	}
	src, ok := img.Attr("src")
	if !ok || !strings.HasPrefix(src, "data:image") {
		return ""
	}
	return src
}

func containsEmElement(fragment string) bool {
	spanCtx := &html.Node{Type: html.ElementNode, Data: "span", DataAtom: atom.Span}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), spanCtx)
	if err != nil {
		return false
	}
	for _, n := range nodes {
		if hasEmNode(n) {
			return true
		}
	}
	return false
}

func hasEmNode(n *html.Node) bool {
	if n.Type == html.ElementNode && n.Data == "em" {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasEmNode(c) {
			return true
		}
	}
	return false
}
