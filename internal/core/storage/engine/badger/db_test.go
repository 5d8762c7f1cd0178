package badger

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dep2p/rendezvous-server/internal/core/storage/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEngine 创建测试用引擎，目录随测试结束清理
func testEngine(t *testing.T) *Engine {
	t.Helper()

	e, err := New(engine.DefaultConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, e.Close())
	})
	return e
}

func TestEngine_PutGetDelete(t *testing.T) {
	e := testEngine(t)

	require.NoError(t, e.Put([]byte("r/ns/a"), []byte("v1")))
	got, err := e.Get([]byte("r/ns/a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, e.Put([]byte("r/ns/a"), []byte("v2")))
	got, err = e.Get([]byte("r/ns/a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, e.Delete([]byte("r/ns/a")))
	_, err = e.Get([]byte("r/ns/a"))
	assert.ErrorIs(t, err, engine.ErrNotFound)

	// 删除不存在的键不是错误
	assert.NoError(t, e.Delete([]byte("missing")))
}

func TestEngine_EmptyKey(t *testing.T) {
	e := testEngine(t)

	assert.ErrorIs(t, e.Put(nil, []byte("v")), engine.ErrEmptyKey)
	_, err := e.Get([]byte{})
	assert.ErrorIs(t, err, engine.ErrEmptyKey)
	assert.ErrorIs(t, e.Delete(nil), engine.ErrEmptyKey)
	assert.ErrorIs(t, e.Update(func(w engine.Writer) error {
		return w.Put(nil, nil)
	}), engine.ErrEmptyKey)
}

func TestEngine_Scan(t *testing.T) {
	e := testEngine(t)

	for _, k := range []string{"r/b", "r/a", "r/c", "x/a", "rr"} {
		require.NoError(t, e.Put([]byte(k), []byte("v-"+k)))
	}

	var keys []string
	require.NoError(t, e.Scan([]byte("r/"), func(key, value []byte) bool {
		keys = append(keys, string(key))
		assert.Equal(t, "v-"+string(key), string(value))
		return true
	}))
	assert.Equal(t, []string{"r/a", "r/b", "r/c"}, keys)

	// 回调返回 false 提前结束
	n := 0
	require.NoError(t, e.Scan(nil, func(_, _ []byte) bool {
		n++
		return false
	}))
	assert.Equal(t, 1, n)
}

func TestEngine_Update(t *testing.T) {
	e := testEngine(t)

	require.NoError(t, e.Update(func(w engine.Writer) error {
		for i := 0; i < 100; i++ {
			if err := w.Put([]byte(fmt.Sprintf("k%03d", i)), []byte{byte(i)}); err != nil {
				return err
			}
		}
		return nil
	}))
	got, err := e.Get([]byte("k042"))
	require.NoError(t, err)
	assert.Equal(t, []byte{42}, got)

	// 回调出错时整批丢弃
	boom := errors.New("boom")
	err = e.Update(func(w engine.Writer) error {
		require.NoError(t, w.Delete([]byte("k042")))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	_, err = e.Get([]byte("k042"))
	assert.NoError(t, err)
}

func TestEngine_ConcurrentWrites(t *testing.T) {
	e := testEngine(t)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				key := []byte(fmt.Sprintf("g%d-%d", g, i))
				assert.NoError(t, e.Put(key, key))
			}
		}(g)
	}
	wg.Wait()

	n := 0
	require.NoError(t, e.Scan([]byte("g"), func(_, _ []byte) bool {
		n++
		return true
	}))
	assert.Equal(t, 400, n)
}

func TestEngine_Closed(t *testing.T) {
	e, err := New(engine.DefaultConfig(filepath.Join(t.TempDir(), "close.db")))
	require.NoError(t, err)
	require.NoError(t, e.Start())

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	assert.ErrorIs(t, e.Put([]byte("k"), []byte("v")), engine.ErrClosed)
	_, err = e.Get([]byte("k"))
	assert.ErrorIs(t, err, engine.ErrClosed)
	assert.ErrorIs(t, e.Delete([]byte("k")), engine.ErrClosed)
	assert.ErrorIs(t, e.Start(), engine.ErrClosed)
	assert.ErrorIs(t, e.Scan(nil, func(_, _ []byte) bool { return true }), engine.ErrClosed)
	assert.ErrorIs(t, e.Update(func(engine.Writer) error { return nil }), engine.ErrClosed)
}

func TestEngine_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "persist.db")

	e, err := New(engine.DefaultConfig(dbPath))
	require.NoError(t, err)
	require.NoError(t, e.Put([]byte("r/ns/peer"), []byte("record")))
	require.NoError(t, e.Close())

	e, err = New(engine.DefaultConfig(dbPath))
	require.NoError(t, err)
	defer e.Close()

	val, err := e.Get([]byte("r/ns/peer"))
	require.NoError(t, err)
	assert.Equal(t, "record", string(val))
}

func TestConfig_Validate(t *testing.T) {
	cfg := engine.DefaultConfig("")
	assert.ErrorIs(t, cfg.Validate(), engine.ErrInvalidConfig)

	cfg = engine.DefaultConfig("/tmp/x")
	cfg.MemTableSize = 1024
	assert.ErrorIs(t, cfg.Validate(), engine.ErrInvalidConfig)

	cfg = engine.DefaultConfig("/tmp/x")
	cfg.GCDiscardRatio = 1
	assert.ErrorIs(t, cfg.Validate(), engine.ErrInvalidConfig)

	_, err := New(nil)
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)
}
