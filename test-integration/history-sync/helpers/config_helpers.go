package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/onsi/gomega"
)

// ConfigOptions describes the service configuration written by WriteConfigYAML
type ConfigOptions struct {
	RemoteURL      string
	Threads        []string
	DatabasePath   string
	ExecuteOnStart bool
	Capture        bool
	PageSize       int
}

// WriteConfigYAML writes a SQLite-backed configuration file into dir
func WriteConfigYAML(dir string, opts ConfigOptions) string {
	pageSize := opts.PageSize
	if pageSize == 0 {
		pageSize = 2
	}

	var threads string
	if len(opts.Threads) == 0 {
		threads = "  source: remote\n"
	} else {
		threads = fmt.Sprintf("  ids: [%s]\n", strings.Join(opts.Threads, ", "))
	}

	content := fmt.Sprintf(`remote:
  endpoint: %s
  timeout: 5s
  maxRetries: 1
threads:
%ssync:
  interval: 1h
  executeOnStart: %t
  maxMessagesPerRequest: %d
storage:
  type: sqlite
  sqlite:
    path: %s
capture:
  enabled: %t
  timeout: 2s
`, opts.RemoteURL, threads, opts.ExecuteOnStart, pageSize, opts.DatabasePath, opts.Capture)

	configPath := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(configPath, []byte(content), 0600)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return configPath
}
