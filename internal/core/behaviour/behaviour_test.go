package behaviour

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
	"github.com/dep2p/rendezvous-server/internal/core/protocol/system/ping"
	"github.com/dep2p/rendezvous-server/internal/core/swarm"
	"github.com/dep2p/rendezvous-server/internal/core/transport"
	"github.com/dep2p/rendezvous-server/internal/discovery/rendezvous"
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
	pb "github.com/dep2p/rendezvous-server/pkg/lib/proto/rendezvous"
	"github.com/dep2p/rendezvous-server/pkg/lib/record"
	"github.com/dep2p/rendezvous-server/pkg/types"
)

func newServer(t *testing.T) *rendezvous.Server {
	t.Helper()
	s, err := rendezvous.NewServer()
	require.NoError(t, err)
	return s
}

func newSwarm(t *testing.T, id *identity.Identity, b swarm.Behaviour) *swarm.Swarm {
	t.Helper()
	tpt, err := transport.Build(id, false, nil)
	require.NoError(t, err)
	s, err := swarm.New(tpt, b)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func generate(t *testing.T) *identity.Identity {
	t.Helper()
	id, err := identity.Generate()
	require.NoError(t, err)
	return id
}

// nextEvent 取出下一个组合行为事件
func nextEvent(t *testing.T, s *swarm.Swarm) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		ev, err := s.NextEvent(ctx)
		require.NoError(t, err)
		if be, ok := ev.(swarm.BehaviourEvent); ok {
			out, ok := be.Event.(Event)
			require.True(t, ok, "unexpected behaviour event %T", be.Event)
			return out
		}
	}
}

func TestNew(t *testing.T) {
	_, err := New(nil, nil)
	assert.ErrorIs(t, err, ErrNilRendezvous)

	a, err := New(newServer(t), nil)
	require.NoError(t, err)
	assert.False(t, a.PingEnabled())
	assert.Equal(t, []types.ProtocolID{rendezvous.ProtocolID}, a.Protocols())

	a, err = New(newServer(t), ping.NewService())
	require.NoError(t, err)
	assert.True(t, a.PingEnabled())
	assert.ElementsMatch(t, []types.ProtocolID{rendezvous.ProtocolID, ping.ProtocolID}, a.Protocols())
	require.NoError(t, a.Close())
}

func TestWrap(t *testing.T) {
	ev, ok := wrapRendezvous(rendezvous.PeerUnregistered{Peer: "p", Namespace: "ns"})
	require.True(t, ok)
	assert.Equal(t, rendezvous.PeerUnregistered{Peer: "p", Namespace: "ns"}, ev.Rendezvous)
	assert.Nil(t, ev.Ping)

	ev, ok = wrapPing(ping.Event{Peer: "p", RTT: time.Millisecond})
	require.True(t, ok)
	require.NotNil(t, ev.Ping)
	assert.Equal(t, time.Millisecond, ev.Ping.RTT)
	assert.Nil(t, ev.Rendezvous)

	_, ok = wrapRendezvous("other")
	assert.False(t, ok)
	_, ok = wrapPing(rendezvous.PeerUnregistered{})
	assert.False(t, ok)
}

// TestAggregate_RegisterOverSwarm 注册请求经过完整的传输栈到达 Rendezvous
func TestAggregate_RegisterOverSwarm(t *testing.T) {
	a, err := New(newServer(t), nil)
	require.NoError(t, err)
	server := newSwarm(t, generate(t), a)
	addr, err := server.Listen(multiaddr.StringCast("/ip4/127.0.0.1/tcp/0"))
	require.NoError(t, err)

	clientID := generate(t)
	client := newSwarm(t, clientID, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = client.Dial(ctx, addr)
	require.NoError(t, err)

	env, err := record.SealPeerRecord(clientID.PrivateKey(), &record.PeerRecord{
		PeerID: clientID.PeerID(),
		Seq:    1,
		Addrs:  []multiaddr.Multiaddr{multiaddr.StringCast("/ip4/10.0.0.1/tcp/4001")},
	})
	require.NoError(t, err)

	st, err := client.NewStream(ctx, server.LocalPeer(), rendezvous.ProtocolID)
	require.NoError(t, err)
	require.NoError(t, pb.WriteMessage(st, &pb.Message{
		Type:     pb.Message_REGISTER,
		Register: &pb.Message_Register{Ns: "chat", SignedPeerRecord: env},
	}))
	resp, err := pb.ReadMessage(st, 0)
	require.NoError(t, err)
	st.Close()
	require.NotNil(t, resp.RegisterResponse)
	assert.Equal(t, pb.Message_OK, resp.RegisterResponse.Status)
	assert.Equal(t, uint64(7200), resp.RegisterResponse.Ttl)

	ev := nextEvent(t, server)
	registered, ok := ev.Rendezvous.(rendezvous.PeerRegistered)
	require.True(t, ok, "got %T", ev.Rendezvous)
	assert.Equal(t, clientID.PeerID(), registered.Peer)
	assert.Equal(t, "chat", registered.Namespace)
	assert.Equal(t, 1, a.Rendezvous().NumRegistrations())

	// 未启用 Ping 时不协商该协议
	_, err = ping.Ping(ctx, client, server.LocalPeer())
	assert.Error(t, err)
}

func TestAggregate_PingEnabled(t *testing.T) {
	a, err := New(newServer(t), ping.NewService(ping.WithInterval(0)))
	require.NoError(t, err)
	server := newSwarm(t, generate(t), a)
	addr, err := server.Listen(multiaddr.StringCast("/ip4/127.0.0.1/tcp/0"))
	require.NoError(t, err)

	client := newSwarm(t, generate(t), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = client.Dial(ctx, addr)
	require.NoError(t, err)

	rtt, err := ping.Ping(ctx, client, server.LocalPeer())
	require.NoError(t, err)
	assert.Greater(t, rtt, time.Duration(0))
}

func TestModule(t *testing.T) {
	tests := []struct {
		name string
		ping bool
	}{
		{"rendezvous only", false},
		{"with ping", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig()
			cfg.Ping.Enable = tt.ping

			var (
				agg *Aggregate
				b   swarm.Behaviour
			)
			app := fxtest.New(t,
				fx.Supply(cfg),
				rendezvous.Module(),
				Module(),
				fx.Populate(&agg, &b),
			)
			app.RequireStart()
			defer app.RequireStop()

			assert.Equal(t, tt.ping, agg.PingEnabled())
			assert.Same(t, agg, b.(*Aggregate))
		})
	}
}
