// internal/crawler/crawler_test.go
package crawler

import (
	"net/url"
	"path/filepath"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrawlerWalksSiteBreadthFirst(t *testing.T) {
	t.Parallel()

	fc, controller := newFakeController(t, map[string]fakePage{
		"https://shop.example/": {
			text: "welcome to the shop front page",
			links: []string{
				"/products/1",
				"/products/2?ref=home",
				"https://shop.example/products/1#reviews",
				"https://elsewhere.example/partner",
				"javascript:void(0)",
				"mailto:sales@shop.example",
				"tel:+15550100",
				"#top",
				"",
			},
		},
		"https://shop.example/products/1": {text: "Acme Rocket Skates, fast as lightning, $49.99"},
		"https://shop.example/products/2": {},
	})
	fl, llm := newFakeLLM(t, map[string]string{
		"Rocket Skates": `{"name":"Acme Rocket Skates","price":"$49.99","metadata":{"brand":"Acme"}}`,
	})

	cfg := testCrawlerConfig(controller.URL)
	sink, err := NewSink(filepath.Join(t.TempDir(), "crawl.json"), newTestLogger(t))
	require.NoError(t, err)

	crawler := New(cfg, NewClient(cfg, "default", newTestLogger(t)), newTestExtractor(t, llm.URL), sink, newTestLogger(t))
	require.NoError(t, crawler.Run(t.Context(), "https://shop.example/"))

	// Depth one is just the home page; depth two is its filtered, normalized,
	// deduplicated links.
	captures := fc.Captures()
	require.Len(t, captures, 3)
	assert.Equal(t, "https://shop.example/", captures[0])
	assert.ElementsMatch(t, []string{
		"https://shop.example/products/1",
		"https://shop.example/products/2",
	}, captures[1:])

	// Links are only harvested for levels that will actually be visited.
	assert.Equal(t, []string{"https://shop.example/"}, fc.Harvests())

	// The home page produced text but no product; the empty-capture page
	// never reached the model at all.
	require.Len(t, fl.Requests(), 2)

	records := readRecords(t, sink.Path())
	require.Len(t, records, 1)
	assert.Equal(t, "Acme Rocket Skates", records[0]["name"])
	assert.Equal(t, "$49.99", records[0]["price"])
	assert.Equal(t, "https://shop.example/products/1", records[0]["url"])

	assert.Equal(t, 2, fc.Started())
	assert.ElementsMatch(t, []string{"sess-1", "sess-2"}, fc.Ended())
}

func TestCrawlerDedupsAcrossPages(t *testing.T) {
	t.Parallel()

	fc, controller := newFakeController(t, map[string]fakePage{
		"https://shop.example/":       {text: "front", links: []string{"/a", "/b"}},
		"https://shop.example/a":      {text: "page a", links: []string{"/shared", "/b"}},
		"https://shop.example/b":      {text: "page b", links: []string{"/shared", "/"}},
		"https://shop.example/shared": {text: "the shared page"},
	})
	_, llm := newFakeLLM(t, nil)

	cfg := testCrawlerConfig(controller.URL)
	cfg.MaxDepth = 3
	sink, err := NewSink(filepath.Join(t.TempDir(), "crawl.json"), newTestLogger(t))
	require.NoError(t, err)

	crawler := New(cfg, NewClient(cfg, "default", newTestLogger(t)), newTestExtractor(t, llm.URL), sink, newTestLogger(t))
	require.NoError(t, crawler.Run(t.Context(), "https://shop.example/"))

	captures := fc.Captures()
	require.Len(t, captures, 4)
	assert.Equal(t, "https://shop.example/", captures[0])
	assert.ElementsMatch(t, []string{"https://shop.example/a", "https://shop.example/b"}, captures[1:3])
	// Both a and b link to it, but the shared page is visited exactly once,
	// and neither the home page nor b is re-entered.
	assert.Equal(t, "https://shop.example/shared", captures[3])

	harvests := fc.Harvests()
	require.Len(t, harvests, 3)
	assert.Equal(t, "https://shop.example/", harvests[0])
	assert.ElementsMatch(t, []string{"https://shop.example/a", "https://shop.example/b"}, harvests[1:])
}

func TestCrawlerDepthOneNeverHarvests(t *testing.T) {
	t.Parallel()

	fc, controller := newFakeController(t, map[string]fakePage{
		"https://shop.example/": {text: "front", links: []string{"/never-visited"}},
	})
	_, llm := newFakeLLM(t, nil)

	cfg := testCrawlerConfig(controller.URL)
	cfg.MaxDepth = 1
	sink, err := NewSink(filepath.Join(t.TempDir(), "crawl.json"), newTestLogger(t))
	require.NoError(t, err)

	crawler := New(cfg, NewClient(cfg, "default", newTestLogger(t)), newTestExtractor(t, llm.URL), sink, newTestLogger(t))
	require.NoError(t, crawler.Run(t.Context(), "https://shop.example/"))

	assert.Equal(t, []string{"https://shop.example/"}, fc.Captures())
	assert.Empty(t, fc.Harvests())
	assert.Empty(t, readRecords(t, sink.Path()))
}

func TestCrawlerRequiresAbsoluteHomeURL(t *testing.T) {
	t.Parallel()

	_, controller := newFakeController(t, nil)
	_, llm := newFakeLLM(t, nil)

	cfg := testCrawlerConfig(controller.URL)
	sink, err := NewSink(filepath.Join(t.TempDir(), "crawl.json"), newTestLogger(t))
	require.NoError(t, err)
	crawler := New(cfg, NewClient(cfg, "default", newTestLogger(t)), newTestExtractor(t, llm.URL), sink, newTestLogger(t))

	for _, home := range []string{"shop.example/catalog", "https://"} {
		err := crawler.Run(t.Context(), home)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be absolute")
	}
}

func TestCaptureRequestWireShape(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(captureRequest("https://shop.example/p"))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "https://shop.example/p", m["url"])

	actions, ok := m["actions"].([]any)
	require.True(t, ok)
	require.Len(t, actions, 2)

	scroll := actions[0].(map[string]any)
	assert.Equal(t, "scroll_to_bottom", scroll["action"])
	assert.Equal(t, float64(500), scroll["step_pixels"])
	assert.Equal(t, 1.5, scroll["step_delay"])
	assert.Equal(t, float64(10), scroll["timeout"])

	text := actions[1].(map[string]any)
	assert.Equal(t, "text", text["action"])
}

func TestResolveLinkFiltersAndNormalizes(t *testing.T) {
	t.Parallel()

	c := &Crawler{host: "shop.example"}
	base, err := url.Parse("https://shop.example/catalog/page")
	require.NoError(t, err)

	tests := []struct {
		name string
		href string
		want string
		ok   bool
	}{
		{name: "relative path", href: "item/42", want: "https://shop.example/catalog/item/42", ok: true},
		{name: "root relative", href: "/sale", want: "https://shop.example/sale", ok: true},
		{name: "query dropped", href: "/sale?utm=x", want: "https://shop.example/sale", ok: true},
		{name: "fragment dropped", href: "/sale#banner", want: "https://shop.example/sale", ok: true},
		{name: "absolute same host", href: "https://shop.example/about", want: "https://shop.example/about", ok: true},
		{name: "other host", href: "https://elsewhere.example/x", ok: false},
		{name: "subdomain is another host", href: "https://blog.shop.example/post", ok: false},
		{name: "javascript", href: "javascript:void(0)", ok: false},
		{name: "mailto", href: "mailto:sales@shop.example", ok: false},
		{name: "tel", href: "tel:+15550100", ok: false},
		{name: "bare fragment", href: "#top", ok: false},
		{name: "empty", href: "", ok: false},
	}

	for _, tc := range tests {
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := c.resolveLink(base, tt.href)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
