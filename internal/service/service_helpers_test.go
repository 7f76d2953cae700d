package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xkilldash9x/pagepilot/internal/config"
	"github.com/xkilldash9x/pagepilot/internal/observability"
)

func TestMain(m *testing.M) {
	// Initialize the logger without a log file so test runs leave no
	// artifacts behind.
	cfg := config.NewDefaultConfig()
	cfg.LoggerCfg.LogFile = ""
	observability.InitializeLogger(cfg.Logger())

	exitCode := m.Run()

	observability.Sync()
	os.Exit(exitCode)
}

// testServiceConfig returns a default config with every filesystem path
// pointed into the test's temp dirs and a placeholder LLM key.
func testServiceConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.BrowserCfg.ProfilesRoot = t.TempDir()
	cfg.CrawlerCfg.OutputFile = filepath.Join(t.TempDir(), "results.json")
	cfg.LLMCfg.APIKey = "test-key"
	return cfg
}
