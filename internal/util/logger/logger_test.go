package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBuffer(t *testing.T, mutate func(*Config)) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	cfg := DefaultConfig()
	cfg.Output = buf
	if mutate != nil {
		mutate(&cfg)
	}
	Setup(cfg)
	t.Cleanup(func() { Setup(DefaultConfig()) })
	return buf
}

func TestSetup_TextOutput(t *testing.T) {
	buf := setupBuffer(t, nil)

	log := Logger("test")
	log.Info("test message", "key", "value")

	output := buf.String()
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, "key=value")
	assert.Contains(t, output, "subsystem=test")
	assert.Contains(t, output, "time=")
}

func TestSetup_ExistingLogger(t *testing.T) {
	// 配置切换前创建的 logger 也要切换输出
	log := Logger("test2")
	buf := setupBuffer(t, nil)

	log.Info("after switch", "key", "value")
	assert.Contains(t, buf.String(), "after switch")
}

func TestSetup_JSON(t *testing.T) {
	buf := setupBuffer(t, func(c *Config) { c.Format = FormatJSON })

	Logger("core/swarm").With("peer", "12D3KooW").Info("Peer registered", "ttl", 7200)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Peer registered", entry["msg"])
	assert.Equal(t, "12D3KooW", entry["peer"])
	assert.Equal(t, "core/swarm", entry["subsystem"])
	assert.EqualValues(t, 7200, entry["ttl"])
	assert.Contains(t, entry, "time")
}

func TestSetup_NoTimestamp(t *testing.T) {
	buf := setupBuffer(t, func(c *Config) { c.NoTimestamp = true })

	Logger("test").Info("hello")
	assert.NotContains(t, buf.String(), "time=")
}

func TestSubsystemLevels(t *testing.T) {
	buf := setupBuffer(t, func(c *Config) {
		c.SubsystemLevels["noisy"] = slog.LevelWarn
		c.SubsystemLevels["verbose"] = slog.LevelDebug
	})

	Logger("noisy").Info("hidden")
	Logger("verbose").Debug("shown")
	Logger("other").Debug("hidden too")

	output := buf.String()
	assert.NotContains(t, output, "hidden")
	assert.Contains(t, output, "shown")
}

func TestParseLevelConfig(t *testing.T) {
	cfg := DefaultConfig()
	parseLevelConfig(&cfg, "core/swarm=debug, core/upgrader=warn ,error,bogus=nope")

	assert.Equal(t, slog.LevelError, cfg.DefaultLevel)
	assert.Equal(t, slog.LevelDebug, cfg.LevelForSubsystem("core/swarm"))
	assert.Equal(t, slog.LevelWarn, cfg.LevelForSubsystem("core/upgrader"))
	assert.Equal(t, slog.LevelError, cfg.LevelForSubsystem("bogus"))
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envLogFormat, "JSON")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	assert.Equal(t, slog.LevelDebug, cfg.DefaultLevel)
	assert.Equal(t, FormatJSON, cfg.Format)
}

func TestDiscard(t *testing.T) {
	log := Discard()
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
	log.Error("nothing")
}

func TestLevelToString(t *testing.T) {
	assert.Equal(t, "DEBUG", levelToString(slog.LevelDebug))
	assert.Equal(t, "INFO", levelToString(slog.LevelInfo))
	assert.Equal(t, "WARN", levelToString(slog.LevelWarn))
	assert.Equal(t, "ERROR", levelToString(slog.LevelError+2))
	assert.True(t, strings.EqualFold("info", levelToString(slog.LevelInfo)))
}
