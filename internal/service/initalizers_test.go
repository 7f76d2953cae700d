package service

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/config"
	"github.com/xkilldash9x/pagepilot/internal/observability"
)

func TestNewHTTPServer(t *testing.T) {
	cfg := config.ServerConfig{
		Host:         "127.0.0.1",
		Port:         9123,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}
	handler := http.NewServeMux()

	srv := NewHTTPServer(cfg, handler)
	assert.Equal(t, "127.0.0.1:9123", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadTimeout)
	assert.Equal(t, 10*time.Second, srv.WriteTimeout)
	assert.Equal(t, 2*time.Minute, srv.IdleTimeout)
	assert.Same(t, handler, srv.Handler)
}

func newPingController(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(schemas.PingResponse{Status: "ok", Message: "pong"})
	}))
}

func TestInitializeCrawler(t *testing.T) {
	t.Run("healthy controller", func(t *testing.T) {
		controller := newPingController(t)
		defer controller.Close()

		cfg := testServiceConfig(t)
		cfg.CrawlerCfg.ControllerURL = controller.URL

		c, err := InitializeCrawler(t.Context(), cfg, "default", observability.GetLogger())
		require.NoError(t, err)
		assert.NotNil(t, c)

		// The sink seeds its output file before the crawl starts.
		data, err := os.ReadFile(cfg.CrawlerCfg.OutputFile)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(data))
	})

	t.Run("unreachable controller", func(t *testing.T) {
		controller := newPingController(t)
		controller.Close()

		cfg := testServiceConfig(t)
		cfg.CrawlerCfg.ControllerURL = controller.URL

		_, err := InitializeCrawler(t.Context(), cfg, "default", observability.GetLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not reachable")
	})

	t.Run("missing llm key", func(t *testing.T) {
		controller := newPingController(t)
		defer controller.Close()

		cfg := testServiceConfig(t)
		cfg.CrawlerCfg.ControllerURL = controller.URL
		cfg.LLMCfg.APIKey = ""

		_, err := InitializeCrawler(t.Context(), cfg, "default", observability.GetLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API key")
	})
}
