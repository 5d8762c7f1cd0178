package swarm

import (
	"context"
	"io"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/rendezvous-server/internal/core/identity"
	"github.com/dep2p/rendezvous-server/internal/core/metrics"
	"github.com/dep2p/rendezvous-server/internal/core/transport"
	"github.com/dep2p/rendezvous-server/internal/core/upgrader"
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
	"github.com/dep2p/rendezvous-server/pkg/types"
)

const echoProto types.ProtocolID = "/echo/1.0.0"

// ============================================================================
//                     测试行为
// ============================================================================

// echoBehaviour 回显一个入站流并记录连接回调
type echoBehaviour struct {
	mu      sync.Mutex
	host    Host
	opened  int
	closed  int
	stopped bool
}

func (b *echoBehaviour) Protocols() []types.ProtocolID {
	return []types.ProtocolID{echoProto}
}

func (b *echoBehaviour) HandleStream(s *Stream) {
	defer s.Close()
	_, _ = io.Copy(s, s)
}

func (b *echoBehaviour) ConnectionEstablished(*Conn) {
	b.mu.Lock()
	b.opened++
	b.mu.Unlock()
}

func (b *echoBehaviour) ConnectionClosed(*Conn) {
	b.mu.Lock()
	b.closed++
	b.mu.Unlock()
}

func (b *echoBehaviour) Start(h Host) error {
	b.host = h
	return nil
}

func (b *echoBehaviour) Close() error {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()
	return nil
}

func (b *echoBehaviour) counts() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened, b.closed
}

// ============================================================================
//                     辅助函数
// ============================================================================

func newSwarm(t *testing.T, b Behaviour, opts ...Option) *Swarm {
	t.Helper()
	id, err := identity.Generate()
	require.NoError(t, err)
	tpt, err := transport.Build(id, false, nil)
	require.NoError(t, err)
	s, err := New(tpt, b, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// waitFor 取事件直到出现类型 T
func waitFor[T Event](t *testing.T, s *Swarm) T {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		ev, err := s.NextEvent(ctx)
		require.NoError(t, err)
		if want, ok := ev.(T); ok {
			return want
		}
	}
}

func listenLoopback(t *testing.T, s *Swarm) multiaddr.Multiaddr {
	t.Helper()
	addr, err := s.Listen(multiaddr.StringCast("/ip4/127.0.0.1/tcp/0"))
	require.NoError(t, err)
	return addr
}

// ============================================================================
//                     测试
// ============================================================================

func TestNew(t *testing.T) {
	_, err := New(nil, nil)
	assert.ErrorIs(t, err, ErrNilTransport)

	b := &echoBehaviour{}
	s := newSwarm(t, b)
	assert.Equal(t, Host(s), b.host)
	assert.False(t, s.LocalPeer().IsEmpty())

	id, err := identity.Generate()
	require.NoError(t, err)
	tpt, err := transport.Build(id, false, nil)
	require.NoError(t, err)
	_, err = New(tpt, nil, WithConfig(&Config{}))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestListen_NewListenAddr(t *testing.T) {
	s := newSwarm(t, nil)
	addr := listenLoopback(t, s)

	ev := waitFor[NewListenAddr](t, s)
	assert.True(t, ev.Address.Equal(addr))
	assert.Len(t, s.ListenAddrs(), 1)

	require.NoError(t, s.CloseListener(addr))
	closed := waitFor[ListenerClosed](t, s)
	assert.True(t, closed.Address.Equal(addr))
	assert.NoError(t, closed.Err)
	assert.Empty(t, s.ListenAddrs())

	t.Log("✅ 监听事件测试通过")
}

func TestDial_StreamRoundTrip(t *testing.T) {
	sb := &echoBehaviour{}
	server := newSwarm(t, sb, WithMetrics(metrics.New()))
	addr := listenLoopback(t, server)
	client := newSwarm(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	target := addr.Encapsulate(multiaddr.StringCast("/p2p/" + server.LocalPeer().String()))
	c, err := client.Dial(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, server.LocalPeer(), c.RemotePeer())
	assert.Equal(t, "tcp", c.Transport())

	established := waitFor[ConnectionEstablished](t, server)
	assert.Equal(t, client.LocalPeer(), established.Peer)
	assert.Equal(t, upgrader.DirInbound, established.Direction)
	assert.Equal(t, 1, established.NumEstablished)

	st, err := client.NewStream(ctx, server.LocalPeer(), "/missing/1.0.0", echoProto)
	require.NoError(t, err)
	assert.Equal(t, echoProto, st.Protocol())

	_, err = st.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, st.CloseWrite())
	got, err := io.ReadAll(st)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	st.Close()

	bw := server.metrics.Bandwidth().GetBandwidthForProtocol(echoProto)
	assert.Equal(t, int64(5), bw.TotalIn)

	require.NoError(t, c.Close())
	closed := waitFor[ConnectionClosed](t, server)
	assert.Equal(t, client.LocalPeer(), closed.Peer)
	assert.Equal(t, 0, closed.NumEstablished)

	opened, closedCount := sb.counts()
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, closedCount)

	_, err = client.NewStream(ctx, server.LocalPeer(), echoProto)
	assert.ErrorIs(t, err, ErrNoConnection)

	t.Log("✅ 拨号与流回显测试通过")
}

func TestNewStream_UnsupportedProtocol(t *testing.T) {
	server := newSwarm(t, &echoBehaviour{})
	addr := listenLoopback(t, server)
	client := newSwarm(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := client.Dial(ctx, addr)
	require.NoError(t, err)

	_, err = client.NewStream(ctx, server.LocalPeer(), "/missing/1.0.0")
	assert.Error(t, err)

	_, err = client.NewStream(ctx, server.LocalPeer())
	assert.ErrorIs(t, err, ErrNoProtocols)
}

// TestIncomingConnectionError 非 multistream 客户端只影响自身连接
func TestIncomingConnectionError(t *testing.T) {
	m := metrics.New()
	server := newSwarm(t, nil, WithMetrics(m))
	addr := listenLoopback(t, server)

	network, host, err := multiaddr.DialArgs(addr)
	require.NoError(t, err)
	raw, err := net.Dial(network, host)
	require.NoError(t, err)
	_, _ = raw.Write([]byte("GET / HTTP/1.1\r\n\r\n"))
	raw.Close()

	ev := waitFor[IncomingConnectionError](t, server)
	assert.Equal(t, upgrader.StageNegotiateSecurity, ev.Stage)
	assert.Error(t, ev.Err)

	// 监听器仍然可用
	client := newSwarm(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = client.Dial(ctx, addr)
	require.NoError(t, err)
	waitFor[ConnectionEstablished](t, server)
}

// TestUpgradeTimeout_OnlyStalledConnection 卡住的升级只让自身超时，同一监听器上的其他连接照常完成
func TestUpgradeTimeout_OnlyStalledConnection(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)
	tpt, err := transport.Build(id, false, nil, transport.WithUpgradeTimeout(time.Second))
	require.NoError(t, err)
	server, err := New(tpt, &echoBehaviour{})
	require.NoError(t, err)
	t.Cleanup(func() { server.Close() })
	addr := listenLoopback(t, server)

	// 建立 TCP 连接后一个字节也不发
	network, host, err := multiaddr.DialArgs(addr)
	require.NoError(t, err)
	stalled, err := net.Dial(network, host)
	require.NoError(t, err)
	defer stalled.Close()

	client := newSwarm(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	start := time.Now()
	c, err := client.Dial(ctx, addr)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, server.LocalPeer(), c.RemotePeer())

	var (
		established *ConnectionEstablished
		failed      *IncomingConnectionError
	)
	for established == nil || failed == nil {
		ev, err := server.NextEvent(ctx)
		require.NoError(t, err)
		switch e := ev.(type) {
		case ConnectionEstablished:
			established = &e
		case IncomingConnectionError:
			failed = &e
		}
	}

	assert.Equal(t, client.LocalPeer(), established.Peer)
	assert.ErrorIs(t, failed.Err, upgrader.ErrUpgradeTimeout)
	assert.Equal(t, upgrader.StageNegotiateSecurity, failed.Stage)

	// 超时后服务端关闭了卡住的连接
	require.NoError(t, stalled.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = io.Copy(io.Discard, stalled)
	assert.NotErrorIs(t, err, os.ErrDeadlineExceeded)

	// 已建立的连接不受影响
	st, err := client.NewStream(ctx, server.LocalPeer(), echoProto)
	require.NoError(t, err)
	_, err = st.Write([]byte("ok"))
	require.NoError(t, err)
	require.NoError(t, st.CloseWrite())
	got, err := io.ReadAll(st)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(got))
}

func TestEmit_Order(t *testing.T) {
	s := newSwarm(t, nil)
	for i := 0; i < 5; i++ {
		s.Emit(i)
	}
	for i := 0; i < 5; i++ {
		ev := waitFor[BehaviourEvent](t, s)
		assert.Equal(t, i, ev.Event)
	}
}

func TestClose(t *testing.T) {
	b := &echoBehaviour{}
	s := newSwarm(t, b)
	listenLoopback(t, s)
	s.Emit("last")

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), ErrSwarmClosed)
	assert.True(t, b.stopped)

	// 关闭前排队的事件仍可取出
	ctx := context.Background()
	var drained []Event
	for {
		ev, err := s.NextEvent(ctx)
		if err != nil {
			assert.ErrorIs(t, err, ErrSwarmClosed)
			break
		}
		drained = append(drained, ev)
	}
	assert.Contains(t, drained, Event(BehaviourEvent{Event: "last"}))

	_, err := s.Listen(multiaddr.StringCast("/ip4/127.0.0.1/tcp/0"))
	assert.ErrorIs(t, err, ErrSwarmClosed)
	_, err = s.Dial(ctx, multiaddr.StringCast("/ip4/127.0.0.1/tcp/1"))
	assert.ErrorIs(t, err, ErrSwarmClosed)
}

func TestEventQueue_ContextCancel(t *testing.T) {
	q := newEventQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.next(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	q.push(NewListenAddr{})
	q.close()
	q.push(NewListenAddr{})

	_, err = q.next(context.Background())
	assert.NoError(t, err)
	_, err = q.next(context.Background())
	assert.ErrorIs(t, err, ErrSwarmClosed)
}

func TestTransportName(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"/ip4/1.2.3.4/tcp/1", "tcp"},
		{"/ip4/1.2.3.4/tcp/1/ws", "ws"},
		{"/ip4/1.2.3.4/tcp/1/wss", "wss"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, transportName(multiaddr.StringCast(tt.addr)), tt.addr)
	}
	assert.Equal(t, "unknown", transportName(nil))
}
