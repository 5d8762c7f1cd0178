package app

import (
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/rendezvous-server/config"
	"github.com/dep2p/rendezvous-server/internal/core/identity"
	sectls "github.com/dep2p/rendezvous-server/internal/core/security/tls"
	"github.com/dep2p/rendezvous-server/internal/core/swarm"
	"github.com/dep2p/rendezvous-server/internal/core/transport"
	"github.com/dep2p/rendezvous-server/internal/discovery/rendezvous"
	"github.com/dep2p/rendezvous-server/internal/util/logger"
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
	pb "github.com/dep2p/rendezvous-server/pkg/lib/proto/rendezvous"
	"github.com/dep2p/rendezvous-server/pkg/lib/record"
)

// syncBuffer 并发安全的日志缓冲
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newBootstrap 日志写入缓冲，测试结束后恢复默认配置
func newBootstrap(t *testing.T, cfg *config.Config, opts ...BootstrapOption) (*Bootstrap, *syncBuffer) {
	t.Helper()
	buf := &syncBuffer{}
	b := NewBootstrap(cfg, append([]BootstrapOption{WithLogOutput(buf)}, opts...)...)
	t.Cleanup(func() {
		_ = b.Stop(context.Background())
		logger.Setup(logger.DefaultConfig())
	})
	return b, buf
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Identity.SecretFile = filepath.Join(t.TempDir(), "secret")
	cfg.Identity.GenerateSecret = true
	cfg.Transport.TCPPort = 0
	return cfg
}

// loopback 把绑定在 0.0.0.0 上的地址换成回环地址
func loopback(t *testing.T, addr multiaddr.Multiaddr) multiaddr.Multiaddr {
	t.Helper()
	port, err := addr.ValueForProtocol(multiaddr.P_TCP)
	require.NoError(t, err)
	return multiaddr.StringCast("/ip4/127.0.0.1/tcp/" + port)
}

func TestBuild_InvalidConfig(t *testing.T) {
	b, _ := newBootstrap(t, config.NewConfig())
	_, err := b.Build()
	assert.ErrorIs(t, err, config.ErrMissingSecretFile)
}

func TestBuild_MissingKeyFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Identity.GenerateSecret = false

	b, _ := newBootstrap(t, cfg)
	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrKeyFileMissing)
	assert.True(t, strings.HasPrefix(err.Error(), "Failed to load identity: "), err.Error())
	assert.Contains(t, err.Error(), cfg.Identity.SecretFile)
	assert.NotContains(t, err.Error(), "could not build arguments")
}

func TestBuild_IncompleteTLS(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transport.EnableWebSocket = true
	cfg.Transport.WebSocketPort = 0
	cfg.Security.TLSPrivateKey = filepath.Join(t.TempDir(), "key.pem")

	b, _ := newBootstrap(t, cfg)
	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, sectls.ErrIncompleteTLSConfig)
	assert.True(t, strings.HasPrefix(err.Error(), "Failed to load TLS material: "), err.Error())
	assert.NotContains(t, err.Error(), "could not build arguments")
}

func TestStart_ListenerBindFailure(t *testing.T) {
	first, _ := newBootstrap(t, testConfig(t))
	rt, err := first.Start()
	require.NoError(t, err)

	port, err := rt.Server.BoundAddrs()[0].ValueForProtocol(multiaddr.P_TCP)
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.Transport.TCPPort, err = strconv.Atoi(port)
	require.NoError(t, err)

	second, _ := newBootstrap(t, cfg)
	_, err = second.Start()
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "Failed to initialize listener"), err.Error())
}

func TestStart_WebSocketListener(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transport.EnableWebSocket = true
	cfg.Transport.WebSocketPort = 0

	b, _ := newBootstrap(t, cfg)
	rt, err := b.Start()
	require.NoError(t, err)

	addrs := rt.Server.BoundAddrs()
	require.Len(t, addrs, 2)
	assert.True(t, multiaddr.HasProtocol(addrs[1], multiaddr.P_WS), addrs[1].String())
}

// TestApp_EventLoop 端到端：注册、发现与注销都出现在事件循环日志中
func TestApp_EventLoop(t *testing.T) {
	b, logs := newBootstrap(t, testConfig(t))
	rt, err := b.Start()
	require.NoError(t, err)
	srv := rt.Server

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	clientID, err := identity.Generate()
	require.NoError(t, err)
	tpt, err := transport.Build(clientID, false, nil)
	require.NoError(t, err)
	client, err := swarm.New(tpt, nil)
	require.NoError(t, err)
	defer client.Close()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	_, err = client.Dial(dialCtx, loopback(t, srv.BoundAddrs()[0]))
	require.NoError(t, err)

	env, err := record.SealPeerRecord(clientID.PrivateKey(), &record.PeerRecord{
		PeerID: clientID.PeerID(),
		Seq:    1,
		Addrs:  []multiaddr.Multiaddr{multiaddr.StringCast("/ip4/10.0.0.1/tcp/4001")},
	})
	require.NoError(t, err)

	request := func(req *pb.Message) *pb.Message {
		st, err := client.NewStream(dialCtx, srv.identity.PeerID(), rendezvous.ProtocolID)
		require.NoError(t, err)
		defer st.Close()
		require.NoError(t, pb.WriteMessage(st, req))
		if req.Type == pb.Message_UNREGISTER {
			return nil
		}
		resp, err := pb.ReadMessage(st, 0)
		require.NoError(t, err)
		return resp
	}

	resp := request(&pb.Message{
		Type:     pb.Message_REGISTER,
		Register: &pb.Message_Register{Ns: "chat", SignedPeerRecord: env},
	})
	assert.Equal(t, pb.Message_OK, resp.RegisterResponse.Status)

	resp = request(&pb.Message{
		Type:     pb.Message_REGISTER,
		Register: &pb.Message_Register{Ns: "chat", SignedPeerRecord: env, Ttl: pb.Uint64(1)},
	})
	assert.Equal(t, pb.Message_E_INVALID_TTL, resp.RegisterResponse.Status)

	resp = request(&pb.Message{Type: pb.Message_DISCOVER, Discover: &pb.Message_Discover{Ns: "chat"}})
	assert.Len(t, resp.DiscoverResponse.Registrations, 1)

	request(&pb.Message{Type: pb.Message_UNREGISTER, Unregister: &pb.Message_Unregister{Ns: "chat"}})

	for _, msg := range []string{
		"Rendezvous server peer id",
		"New listening address reported",
		"Peer registered",
		"Peer failed to register",
		"Discovery served",
		"Peer unregistered",
	} {
		assert.Eventually(t, func() bool {
			return strings.Contains(logs.String(), msg)
		}, 5*time.Second, 10*time.Millisecond, msg)
	}
	out := logs.String()
	assert.Contains(t, out, "namespace=chat")
	assert.Contains(t, out, "error=E_INVALID_TTL")
	assert.Contains(t, out, clientID.PeerID().String())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve 未在取消后返回")
	}
}

// TestRunApp_Cancelled 上下文取消后 RunApp 关闭全部模块并返回 nil
func TestRunApp_Cancelled(t *testing.T) {
	b, _ := newBootstrap(t, testConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, RunApp(ctx, b))
	assert.Equal(t, 0, b.runtime.Behaviour.Rendezvous().NumRegistrations())

	_, err := b.runtime.Swarm.Listen(multiaddr.StringCast("/ip4/127.0.0.1/tcp/0"))
	assert.ErrorIs(t, err, swarm.ErrSwarmClosed)
}

func TestHandleEvent_Expired(t *testing.T) {
	logs := &syncBuffer{}
	lc := logger.DefaultConfig()
	lc.Output = logs
	logger.Setup(lc)
	t.Cleanup(func() { logger.Setup(logger.DefaultConfig()) })

	handleEvent(swarm.BehaviourEvent{Event: nil})
	handleEvent(swarm.ConnectionClosed{})
	assert.Empty(t, logs.String())

	handleRendezvous(rendezvous.RegistrationExpired{
		Peer:      "12D3KooWPeer",
		Namespace: "ns",
		Addresses: []multiaddr.Multiaddr{
			multiaddr.StringCast("/ip4/1.2.3.4/tcp/1"),
			multiaddr.StringCast("/ip4/5.6.7.8/tcp/2"),
		},
		TTL: 7200,
	})
	out := logs.String()
	assert.Contains(t, out, "Registration expired")
	assert.Contains(t, out, `addresses=/ip4/1.2.3.4/tcp/1,/ip4/5.6.7.8/tcp/2`)
	assert.Contains(t, out, "ttl=7200")
}
