package dns

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/rendezvous-server/internal/core/transport/tcp"
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
)

// fakeResolver 内存中的解析表
type fakeResolver struct {
	a    map[string][]net.IP
	aaaa map[string][]net.IP
	txt  map[string][]string
}

func (r *fakeResolver) LookupIP(_ context.Context, host string, v4, v6 bool) ([]net.IP, error) {
	var out []net.IP
	if v4 {
		out = append(out, r.a[host]...)
	}
	if v6 {
		out = append(out, r.aaaa[host]...)
	}
	if len(out) == 0 {
		return nil, ErrNoRecordsFound
	}
	return out, nil
}

func (r *fakeResolver) LookupTXT(_ context.Context, name string) ([]string, error) {
	recs, ok := r.txt[name]
	if !ok {
		return nil, ErrNoRecordsFound
	}
	return recs, nil
}

func newFake() *fakeResolver {
	return &fakeResolver{
		a: map[string][]net.IP{
			"example.test": {net.ParseIP("192.0.2.1")},
			"local.test":   {net.ParseIP("127.0.0.1")},
		},
		aaaa: map[string][]net.IP{
			"example.test": {net.ParseIP("2001:db8::1")},
		},
		txt: map[string][]string{
			"_dnsaddr.boot.test": {
				"dnsaddr=/dnsaddr/nested.test",
				"dnsaddr=/ip4/192.0.2.9/tcp/4001/p2p/QmYyQSo1c1Ym7orWxLYvCrM2EmxFTANf8wXmmE7DWjhx5N",
				"garbage",
			},
			"_dnsaddr.nested.test": {
				"dnsaddr=/dns4/example.test/tcp/4002/p2p/QmYyQSo1c1Ym7orWxLYvCrM2EmxFTANf8wXmmE7DWjhx5N",
			},
			"_dnsaddr.loop.test": {"dnsaddr=/dnsaddr/loop.test"},
		},
	}
}

func strs(addrs []multiaddr.Multiaddr) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return out
}

func TestResolve(t *testing.T) {
	tpt := New(tcp.New(), WithResolver(newFake()))
	ctx := context.Background()

	tests := []struct {
		name string
		addr string
		want []string
	}{
		{"ip passthrough", "/ip4/1.2.3.4/tcp/1", []string{"/ip4/1.2.3.4/tcp/1"}},
		{"dns4", "/dns4/example.test/tcp/443/wss", []string{"/ip4/192.0.2.1/tcp/443/wss"}},
		{"dns6", "/dns6/example.test/tcp/443", []string{"/ip6/2001:db8::1/tcp/443"}},
		{"dns both", "/dns/example.test/tcp/443", []string{"/ip4/192.0.2.1/tcp/443", "/ip6/2001:db8::1/tcp/443"}},
		{"dnsaddr nested", "/dnsaddr/boot.test", []string{
			"/ip4/192.0.2.1/tcp/4002/p2p/QmYyQSo1c1Ym7orWxLYvCrM2EmxFTANf8wXmmE7DWjhx5N",
			"/ip4/192.0.2.9/tcp/4001/p2p/QmYyQSo1c1Ym7orWxLYvCrM2EmxFTANf8wXmmE7DWjhx5N",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tpt.Resolve(ctx, multiaddr.StringCast(tt.addr))
			require.NoError(t, err)
			assert.Equal(t, tt.want, strs(got))
		})
	}
}

func TestResolve_Errors(t *testing.T) {
	tpt := New(tcp.New(), WithResolver(newFake()))
	ctx := context.Background()

	_, err := tpt.Resolve(ctx, multiaddr.StringCast("/dns4/missing.test/tcp/1"))
	assert.ErrorIs(t, err, ErrNoRecordsFound)

	// 自引用的 dnsaddr 最终因深度限制而没有结果
	_, err = tpt.Resolve(ctx, multiaddr.StringCast("/dnsaddr/loop.test"))
	assert.ErrorIs(t, err, ErrNoRecordsFound)
}

func TestParseDNSAddr(t *testing.T) {
	ma, err := ParseDNSAddr("dnsaddr=/ip4/1.2.3.4/tcp/1")
	require.NoError(t, err)
	assert.Equal(t, "/ip4/1.2.3.4/tcp/1", ma.String())

	_, err = ParseDNSAddr("/ip4/1.2.3.4/tcp/1")
	assert.ErrorIs(t, err, ErrInvalidDNSAddr)
	_, err = ParseDNSAddr("dnsaddr=not-a-multiaddr")
	assert.ErrorIs(t, err, ErrInvalidDNSAddr)
}

func TestTransport_CanDial(t *testing.T) {
	tpt := New(tcp.New(), WithResolver(newFake()))
	assert.True(t, tpt.CanDial(multiaddr.StringCast("/dns4/example.test/tcp/1")))
	assert.True(t, tpt.CanDial(multiaddr.StringCast("/dns6/example.test/tcp/1")))
	assert.True(t, tpt.CanDial(multiaddr.StringCast("/ip4/1.2.3.4/tcp/1")))
	assert.False(t, tpt.CanDial(multiaddr.StringCast("/dns4/example.test/tcp/1/ws")))
	assert.False(t, tpt.CanListen(multiaddr.StringCast("/dns4/example.test/tcp/1")))
}

// TestTransport_DialResolved 通过域名拨号到本地监听
func TestTransport_DialResolved(t *testing.T) {
	tpt := New(tcp.New(), WithResolver(newFake()))

	l, err := tpt.Listen(multiaddr.StringCast("/ip4/127.0.0.1/tcp/0"))
	require.NoError(t, err)
	defer l.Close()
	go func() {
		c, err := l.Accept()
		if err == nil {
			defer c.Close()
			_, _ = c.Write([]byte("ok"))
		}
	}()

	port, err := l.Multiaddr().ValueForProtocol(multiaddr.P_TCP)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := tpt.Dial(ctx, multiaddr.StringCast("/dns4/local.test/tcp/"+port))
	require.NoError(t, err)
	defer c.Close()

	buf := make([]byte, 2)
	_, err = c.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(buf))

	t.Log("✅ 域名拨号测试通过")
}

func TestNewResolver(t *testing.T) {
	_, ok := NewResolver(filepath.Join(t.TempDir(), "absent")).(*netResolver)
	assert.True(t, ok)

	path := filepath.Join(t.TempDir(), "resolv.conf")
	require.NoError(t, os.WriteFile(path, []byte("nameserver 127.0.0.53\noptions timeout:2\n"), 0o644))
	r, ok := NewResolver(path).(*clientResolver)
	require.True(t, ok)
	assert.Equal(t, []string{"127.0.0.53:53"}, r.servers)
	assert.Equal(t, 2*time.Second, r.client.Timeout)
}
