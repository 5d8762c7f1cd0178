package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := NewConfig()
	cfg.Identity.SecretFile = "/tmp/secret"
	cfg.Transport.TCPPort = 8888
	return cfg
}

// TestNewConfig 默认配置缺少必填项
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	assert.ErrorIs(t, cfg.Validate(), ErrMissingSecretFile)

	cfg.Identity.SecretFile = "/tmp/secret"
	assert.ErrorIs(t, cfg.Validate(), ErrMissingListenTCP)

	cfg.Transport.TCPPort = 0
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"tcp port too large", func(c *Config) { c.Transport.TCPPort = 70000 }, ErrInvalidPort},
		{"websocket without port", func(c *Config) { c.Transport.EnableWebSocket = true }, ErrInvalidPort},
		{"websocket with port", func(c *Config) {
			c.Transport.EnableWebSocket = true
			c.Transport.WebSocketPort = 8889
		}, nil},
		{"zero upgrade timeout", func(c *Config) { c.Transport.UpgradeTimeout = 0 }, ErrInvalidConfig},
		{"negative rate", func(c *Config) { c.Rendezvous.MaxRegisterRate = -1 }, ErrInvalidConfig},
		{"bad metrics addr", func(c *Config) { c.Metrics.ListenAddr = "localhost" }, ErrInvalidConfig},
		{"metrics addr", func(c *Config) { c.Metrics.ListenAddr = "127.0.0.1:9090" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestListenAddrs(t *testing.T) {
	cfg := validConfig()

	addrs, err := cfg.ListenAddrs(false)
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	assert.Equal(t, ListenerTCP, addrs[0].Name)
	assert.Equal(t, "/ip4/0.0.0.0/tcp/8888", addrs[0].Addr.String())

	cfg.Transport.EnableWebSocket = true
	cfg.Transport.WebSocketPort = 8889

	addrs, err = cfg.ListenAddrs(false)
	require.NoError(t, err)
	require.Len(t, addrs, 2)
	assert.Equal(t, ListenerWebSocket, addrs[1].Name)
	assert.Equal(t, "/ip4/0.0.0.0/tcp/8889/ws", addrs[1].Addr.String())

	addrs, err = cfg.ListenAddrs(true)
	require.NoError(t, err)
	assert.Equal(t, "/ip4/0.0.0.0/tcp/8889/wss", addrs[1].Addr.String())

	t.Log("✅ ListenAddrs 测试通过")
}
