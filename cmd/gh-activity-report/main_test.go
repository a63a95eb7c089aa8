package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alimgiray/gh-activity-report/pkg/config"
	"github.com/alimgiray/gh-activity-report/pkg/logger"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GH_TOKEN", "GITHUB_TOKEN", "GH_ORG", "REPORT_CONFIG", "OUTPUT_DIR"} {
		t.Setenv(key, "")
	}
	var discard bytes.Buffer
	logger.SetOutput(&discard)
}

func TestRunUsageErrors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--nope"}},
		{"no target", []string{}},
		{"bad since", []string{"--org", "acme", "--since", "05/01/2025"}},
		{"reversed window", []string{"--org", "acme", "--since", "2025-06-01", "--until", "2025-05-01"}},
		{"stray argument", []string{"--org", "acme", "extra"}},
		{"missing config file", []string{"--org", "acme", "--config", filepath.Join(t.TempDir(), "missing.yaml")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			assert.Equal(t, exitUsage, run(tt.args, &stderr))
			assert.NotEmpty(t, stderr.String())
		})
	}
}

func TestRunHelp(t *testing.T) {
	clearEnv(t)
	var stderr bytes.Buffer
	assert.Equal(t, exitOK, run([]string{"-h"}, &stderr))
	assert.Contains(t, stderr.String(), "GH_TOKEN")
}

func TestRunMissingTokenFails(t *testing.T) {
	clearEnv(t)
	out := t.TempDir()

	var stderr bytes.Buffer
	code := run([]string{"--org", "acme", "--since", "2025-05-01", "--until", "2025-05-31", "--out", out}, &stderr)
	assert.Equal(t, exitError, code)

	entries, err := os.ReadDir(out)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestApplyFlags(t *testing.T) {
	cfg := &config.Config{
		Fetch:  config.FetchConfig{Workers: 4},
		Report: config.ReportConfig{Org: "from-env", OutputDir: "."},
	}

	applyFlags(cfg, cliOptions{Org: "acme", Out: "reports", XLSX: true, Workers: 8})
	assert.Equal(t, "acme", cfg.Report.Org)
	assert.Equal(t, "reports", cfg.Report.OutputDir)
	assert.True(t, cfg.Report.WriteXLSX)
	assert.Equal(t, 8, cfg.Fetch.Workers)

	applyFlags(cfg, cliOptions{})
	assert.Equal(t, "acme", cfg.Report.Org, "empty flags keep configured values")
	assert.Equal(t, 8, cfg.Fetch.Workers)
}
