// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pagepilot/internal/config"
	"github.com/xkilldash9x/pagepilot/internal/observability"
)

func TestMain(m *testing.M) {
	// The command hooks initialize the global logger; seed it quietly up
	// front so it stays silent for the whole binary.
	observability.InitializeLogger(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"})
	os.Exit(m.Run())
}

// executeCommand runs a pristine root command with the given args, capturing
// combined output. The config flag state is reset so tests stay independent.
func executeCommand(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	cfgFile = ""

	root := NewRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return buf.String(), err
}

// executeCommandNoPreRun is for testing argument and flag validation without
// triggering config loading in PersistentPreRunE.
func executeCommandNoPreRun(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile = ""

	root := NewRootCommand()
	root.PersistentPreRunE = nil
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// createTempConfig writes a yaml config file for --config tests.
func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// interceptCrawl replaces the crawl RunE with one that only records the
// resolved config, letting tests exercise the full hook chain without a
// running controller.
func interceptCrawl(t *testing.T, root *cobra.Command) **config.Config {
	t.Helper()
	captured := new(*config.Config)
	for _, sub := range root.Commands() {
		if sub.Name() == "crawl" {
			sub.RunE = func(cmd *cobra.Command, args []string) error {
				cfg, err := configFromContext(cmd.Context())
				if err != nil {
					return err
				}
				applyCrawlFlagOverrides(cmd, cfg)
				*captured = cfg
				return nil
			}
			return captured
		}
	}
	t.Fatal("crawl command not found")
	return nil
}
