package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/rendezvous-server/config"
	"github.com/dep2p/rendezvous-server/internal/core/identity"
	"github.com/dep2p/rendezvous-server/internal/core/muxer"
	"github.com/dep2p/rendezvous-server/internal/core/security"
	"github.com/dep2p/rendezvous-server/internal/core/transport/tcp"
	"github.com/dep2p/rendezvous-server/internal/core/transport/websocket"
	"github.com/dep2p/rendezvous-server/internal/core/upgrader"
	"github.com/dep2p/rendezvous-server/pkg/interfaces"
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
)

func newIdentity(t *testing.T) *identity.Identity {
	t.Helper()
	id, err := identity.Generate()
	require.NoError(t, err)
	return id
}

func TestOr(t *testing.T) {
	base := tcp.New()
	o := Or(websocket.New(base, nil), base, nil)

	assert.True(t, o.CanListen(multiaddr.StringCast("/ip4/127.0.0.1/tcp/0")))
	assert.True(t, o.CanListen(multiaddr.StringCast("/ip4/127.0.0.1/tcp/0/ws")))
	assert.False(t, o.CanDial(multiaddr.StringCast("/ip4/127.0.0.1/udp/1")))
	assert.ElementsMatch(t,
		[]int{multiaddr.P_WS, multiaddr.P_WSS, multiaddr.P_TCP},
		o.Protocols())

	_, err := o.Listen(multiaddr.StringCast("/ip4/127.0.0.1/udp/0"))
	assert.ErrorIs(t, err, ErrNoTransport)
}

// serveOnce 接收一个连接，升级后回显一个流
func serveOnce(t *testing.T, tpt *Upgraded, l interfaces.Listener) <-chan *upgrader.Conn {
	t.Helper()
	out := make(chan *upgrader.Conn, 1)
	go func() {
		raw, err := l.Accept()
		if err != nil {
			close(out)
			return
		}
		c, err := tpt.Upgrade(context.Background(), raw)
		if err != nil {
			close(out)
			return
		}
		out <- c
		s, err := c.AcceptStream()
		if err != nil {
			return
		}
		buf := make([]byte, 4)
		if _, err := s.Read(buf); err == nil {
			_, _ = s.Write(buf)
		}
		s.Close()
	}()
	return out
}

func dialAndEcho(t *testing.T, tpt *Upgraded, addr multiaddr.Multiaddr) *upgrader.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := tpt.Dial(ctx, addr)
	require.NoError(t, err)

	s, err := c.OpenStream(ctx)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))
	return c
}

func TestBuild_TCP(t *testing.T) {
	serverID, clientID := newIdentity(t), newIdentity(t)
	server, err := Build(serverID, false, nil)
	require.NoError(t, err)
	client, err := Build(clientID, false, nil)
	require.NoError(t, err)

	assert.False(t, server.CanListen(multiaddr.StringCast("/ip4/127.0.0.1/tcp/0/ws")))

	l, err := server.Listen(multiaddr.StringCast("/ip4/127.0.0.1/tcp/0"))
	require.NoError(t, err)
	defer l.Close()
	accepted := serveOnce(t, server, l)

	addr := l.Multiaddr().Encapsulate(multiaddr.StringCast("/p2p/" + serverID.PeerID().String()))
	c := dialAndEcho(t, client, addr)
	defer c.Close()

	assert.Equal(t, serverID.PeerID(), c.RemotePeer())
	assert.Equal(t, muxer.YamuxID, c.Muxer())

	sc := <-accepted
	require.NotNil(t, sc)
	defer sc.Close()
	assert.Equal(t, clientID.PeerID(), sc.RemotePeer())

	t.Log("✅ TCP 传输栈测试通过")
}

func TestBuild_WebSocket(t *testing.T) {
	serverID := newIdentity(t)
	server, err := Build(serverID, true, nil)
	require.NoError(t, err)
	client, err := Build(newIdentity(t), true, nil)
	require.NoError(t, err)

	_, err = server.Listen(multiaddr.StringCast("/ip4/127.0.0.1/tcp/0/wss"))
	assert.ErrorIs(t, err, websocket.ErrNoTLSConfig)

	l, err := server.Listen(multiaddr.StringCast("/ip4/127.0.0.1/tcp/0/ws"))
	require.NoError(t, err)
	defer l.Close()
	accepted := serveOnce(t, server, l)

	c := dialAndEcho(t, client, l.Multiaddr())
	defer c.Close()
	assert.Equal(t, serverID.PeerID(), c.RemotePeer())

	if sc := <-accepted; sc != nil {
		sc.Close()
	}

	t.Log("✅ WebSocket 传输栈测试通过")
}

// TestBuild_WrongPeer 地址中的 /p2p 与实际身份不符时拨号失败
func TestBuild_WrongPeer(t *testing.T) {
	server, err := Build(newIdentity(t), false, nil)
	require.NoError(t, err)
	client, err := Build(newIdentity(t), false, nil)
	require.NoError(t, err)

	l, err := server.Listen(multiaddr.StringCast("/ip4/127.0.0.1/tcp/0"))
	require.NoError(t, err)
	defer l.Close()
	serveOnce(t, server, l)

	other := newIdentity(t)
	addr := l.Multiaddr().Encapsulate(multiaddr.StringCast("/p2p/" + other.PeerID().String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = client.Dial(ctx, addr)
	require.Error(t, err)
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(nil, false, nil)
	assert.ErrorIs(t, err, ErrNilIdentity)

	tpt, err := Build(newIdentity(t), false, nil, WithUpgradeTimeout(3*time.Second))
	require.NoError(t, err)
	_, err = tpt.Dial(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidAddress)
	assert.False(t, tpt.CanDial(multiaddr.StringCast("/ip4/127.0.0.1/udp/1")))
}

func TestModule(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Identity.SecretFile = t.TempDir() + "/secret"
	cfg.Identity.GenerateSecret = true
	cfg.Transport.TCPPort = 0

	var (
		tpt *Upgraded
		id  *identity.Identity
	)
	app := fxtest.New(t,
		fx.Supply(cfg),
		identity.Module(),
		security.Module(),
		upgrader.Module(),
		Module(),
		fx.Populate(&tpt, &id),
	)
	app.RequireStart()
	defer app.RequireStop()

	assert.Equal(t, id.PeerID(), tpt.LocalPeer())
}
