package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/rendezvous-server/config"
	"github.com/dep2p/rendezvous-server/internal/core/storage/engine"
)

func TestModule_Disabled(t *testing.T) {
	var eng Engine
	app := fxtest.New(t,
		fx.Supply(config.NewConfig()),
		Module(),
		fx.Populate(&eng),
	)
	app.RequireStart()
	assert.Nil(t, eng)
	app.RequireStop()
}

func TestModule_Lifecycle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "registrations")
	cfg := config.NewConfig()
	cfg.Rendezvous.RegistrationDB = dir

	var eng Engine
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module(),
		fx.Populate(&eng),
	)
	require.NotNil(t, eng)
	app.RequireStart()

	require.NoError(t, NewKVStore(eng, []byte("r/")).Put([]byte("ns/peer"), []byte("v")))

	app.RequireStop()

	// 停止后引擎已关闭
	assert.ErrorIs(t, eng.Put([]byte("k"), nil), engine.ErrClosed)

	reopened, err := New(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := NewKVStore(reopened, []byte("r/")).Get([]byte("ns/peer"))
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestConfig(t *testing.T) {
	cfg := ConfigFromUnified(nil)
	assert.False(t, cfg.Enabled())
	assert.ErrorIs(t, cfg.Validate(), engine.ErrInvalidConfig)

	cfg.Path = "/tmp/x"
	cfg.GCInterval = time.Second
	cfg.GCDiscardRatio = 7
	require.NoError(t, cfg.Validate())
	assert.Equal(t, time.Minute, cfg.GCInterval)
	assert.Equal(t, 0.5, cfg.GCDiscardRatio)

	ec := cfg.ToEngineConfig()
	assert.Equal(t, "/tmp/x", ec.Path)
	assert.Equal(t, time.Minute, ec.GCInterval)
	assert.NotNil(t, ec.Logger)
}

func TestNew_EmptyPath(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)
}
