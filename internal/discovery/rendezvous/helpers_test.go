package rendezvous

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/rendezvous-server/internal/core/swarm"
	"github.com/dep2p/rendezvous-server/pkg/lib/crypto"
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
	pb "github.com/dep2p/rendezvous-server/pkg/lib/proto/rendezvous"
	"github.com/dep2p/rendezvous-server/pkg/lib/record"
	"github.com/dep2p/rendezvous-server/pkg/types"
)

// testHost 收集上报的事件
type testHost struct {
	events chan any
}

func newTestHost() *testHost {
	return &testHost{events: make(chan any, 128)}
}

func (h *testHost) LocalPeer() types.PeerID { return "server" }

func (h *testHost) NewStream(context.Context, types.PeerID, ...types.ProtocolID) (*swarm.Stream, error) {
	return nil, errors.New("not supported")
}

func (h *testHost) Emit(ev any) { h.events <- ev }

// nextEvent 等待下一个 T 类型的事件，跳过其他事件
func nextEvent[T any](t *testing.T, h *testHost) T {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-h.events:
			if v, ok := ev.(T); ok {
				return v
			}
		case <-timeout:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

// testPeer 测试节点身份
type testPeer struct {
	id   types.PeerID
	priv crypto.PrivateKey
}

func newTestPeer(t *testing.T) testPeer {
	t.Helper()
	priv, _, err := crypto.GenerateKeyPair(crypto.KeyTypeEd25519)
	require.NoError(t, err)
	id, err := crypto.PeerIDFromPrivateKey(priv)
	require.NoError(t, err)
	return testPeer{id: id, priv: priv}
}

// signedRecord 返回 p 签名的节点记录信封
func (p testPeer) signedRecord(t *testing.T, addrs ...string) []byte {
	t.Helper()
	rec := &record.PeerRecord{PeerID: p.id, Seq: 1}
	for _, a := range addrs {
		rec.Addrs = append(rec.Addrs, multiaddr.StringCast(a))
	}
	env, err := record.SealPeerRecord(p.priv, rec)
	require.NoError(t, err)
	return env
}

func registerMsg(ns string, env []byte, ttl *uint64) *pb.Message {
	return &pb.Message{
		Type:     pb.Message_REGISTER,
		Register: &pb.Message_Register{Ns: ns, SignedPeerRecord: env, Ttl: ttl},
	}
}

func discoverMsg(ns string, limit uint64, cookie []byte) *pb.Message {
	d := &pb.Message_Discover{Ns: ns, Cookie: cookie}
	if limit > 0 {
		d.Limit = pb.Uint64(limit)
	}
	return &pb.Message{Type: pb.Message_DISCOVER, Discover: d}
}

// roundTrip 通过 net.Pipe 发送一个请求，返回响应（无响应时为 nil）
func roundTrip(t *testing.T, s *Server, peer types.PeerID, req *pb.Message) *pb.Message {
	t.Helper()

	client, server := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.serve(peer, server)
	}()
	defer func() {
		client.Close()
		<-done
	}()

	require.NoError(t, client.SetDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, pb.WriteMessage(client, req))

	resp, err := pb.ReadMessage(client, 0)
	if err != nil {
		return nil
	}
	return resp
}

func register(t *testing.T, s *Server, p testPeer, ns string, ttl *uint64) *pb.Message_RegisterResponse {
	t.Helper()
	resp := roundTrip(t, s, p.id, registerMsg(ns, p.signedRecord(t, "/ip4/1.2.3.4/tcp/4001"), ttl))
	require.NotNil(t, resp)
	require.Equal(t, pb.Message_REGISTER_RESPONSE, resp.Type)
	require.NotNil(t, resp.RegisterResponse)
	return resp.RegisterResponse
}

func discover(t *testing.T, s *Server, peer types.PeerID, ns string, limit uint64, cookie []byte) *pb.Message_DiscoverResponse {
	t.Helper()
	resp := roundTrip(t, s, peer, discoverMsg(ns, limit, cookie))
	require.NotNil(t, resp)
	require.Equal(t, pb.Message_DISCOVER_RESPONSE, resp.Type)
	require.NotNil(t, resp.DiscoverResponse)
	return resp.DiscoverResponse
}
