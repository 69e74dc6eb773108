package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"triage-assist/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "0"},
		LLM:    config.LLMConfig{Provider: config.ProviderNone},
		Log:    config.LogConfig{Level: "info", Format: "json"},
	}
}

func TestRun_ReturnsProtocolErrors(t *testing.T) {
	dir := t.TempDir()

	cfg := testConfig()
	cfg.ProtocolFile = filepath.Join(dir, "missing.yaml")
	err := run(context.Background(), cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open protocol")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: x\ngates: []\n"), 0o644))
	cfg.ProtocolFile = bad
	err = run(context.Background(), cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "protocol has no gates")
}

func TestRun_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx, testConfig(), zaptest.NewLogger(t)) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}
