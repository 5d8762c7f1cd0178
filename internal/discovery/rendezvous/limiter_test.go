package rendezvous

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/rendezvous-server/pkg/types"
)

func TestRegisterLimiter_Disabled(t *testing.T) {
	l := newRegisterLimiter(clock.NewMock(), 0)
	require.Nil(t, l)
	for i := 0; i < 100; i++ {
		assert.True(t, l.allow("peer"))
	}
	assert.Zero(t, l.size())
}

func TestRegisterLimiter_Burst(t *testing.T) {
	mock := clock.NewMock()
	l := newRegisterLimiter(mock, 0.5)

	// 突发至少为 1
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.True(t, l.allow("b"))

	mock.Add(2 * time.Second)
	assert.True(t, l.allow("a"))
}

// TestRegisterLimiter_Prune 空闲节点的令牌桶被回收
func TestRegisterLimiter_Prune(t *testing.T) {
	mock := clock.NewMock()
	l := newRegisterLimiter(mock, 10)

	for _, p := range []types.PeerID{"a", "b", "c"} {
		l.allow(p)
	}
	assert.Equal(t, 3, l.size())

	mock.Add(limiterIdleExpiry)
	l.allow("d")
	assert.Equal(t, 1, l.size())
}
