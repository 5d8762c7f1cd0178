package dns

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/dep2p/rendezvous-server/internal/util/logger"
	"github.com/dep2p/rendezvous-server/pkg/interfaces"
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
)

var log = logger.Logger("core/transport/dns")

// DefaultMaxDepth dnsaddr 递归解析的最大深度
const DefaultMaxDepth = 3

// ============================================================================
//                              Transport 实现
// ============================================================================

// Transport 带域名解析的传输包装层
type Transport struct {
	inner    interfaces.Transport
	resolver Resolver
	maxDepth int
}

var _ interfaces.Transport = (*Transport)(nil)

// Option 配置选项
type Option func(*Transport)

// WithResolver 指定解析器
func WithResolver(r Resolver) Option {
	return func(t *Transport) {
		t.resolver = r
	}
}

// New 包装内层传输，默认使用系统解析配置
func New(inner interfaces.Transport, opts ...Option) *Transport {
	t := &Transport{inner: inner, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(t)
	}
	if t.resolver == nil {
		t.resolver = NewResolver(DefaultResolvConf)
	}
	return t
}

// isDNS 首个组件是否需要解析
func isDNS(addr multiaddr.Multiaddr) bool {
	if addr == nil {
		return false
	}
	first, _ := multiaddr.SplitFirst(addr)
	switch first.Protocol().Code {
	case multiaddr.P_DNS, multiaddr.P_DNS4, multiaddr.P_DNS6, multiaddr.P_DNSADDR:
		return true
	}
	return false
}

// CanDial 域名地址替换为占位 IP 后交给内层判断
func (t *Transport) CanDial(addr multiaddr.Multiaddr) bool {
	if !isDNS(addr) {
		return t.inner.CanDial(addr)
	}
	first, rest := multiaddr.SplitFirst(addr)
	switch first.Protocol().Code {
	case multiaddr.P_DNSADDR:
		// 解析前无法得知具体地址
		return true
	case multiaddr.P_DNS6:
		return t.inner.CanDial(multiaddr.Join(multiaddr.StringCast("/ip6/::1"), rest))
	default:
		return t.inner.CanDial(multiaddr.Join(multiaddr.StringCast("/ip4/127.0.0.1"), rest))
	}
}

// CanListen 监听不做解析
func (t *Transport) CanListen(addr multiaddr.Multiaddr) bool {
	return t.inner.CanListen(addr)
}

// Protocols 返回内层协议与域名协议
func (t *Transport) Protocols() []int {
	return append(t.inner.Protocols(),
		multiaddr.P_DNS, multiaddr.P_DNS4, multiaddr.P_DNS6, multiaddr.P_DNSADDR)
}

// Listen 直接交给内层
func (t *Transport) Listen(laddr multiaddr.Multiaddr) (interfaces.Listener, error) {
	return t.inner.Listen(laddr)
}

// Dial 解析后依次尝试各地址，返回第一个成功的连接
func (t *Transport) Dial(ctx context.Context, raddr multiaddr.Multiaddr) (interfaces.Conn, error) {
	if !isDNS(raddr) {
		return t.inner.Dial(ctx, raddr)
	}

	addrs, err := t.Resolve(ctx, raddr)
	if err != nil {
		return nil, err
	}

	var errs error
	for _, a := range addrs {
		if !t.inner.CanDial(a) {
			continue
		}
		c, err := t.inner.Dial(ctx, a)
		if err == nil {
			return c, nil
		}
		errs = multierr.Append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	if errs == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoDialableAddr, raddr)
	}
	return nil, fmt.Errorf("dial %s: %w", raddr, errs)
}

// ============================================================================
//                              地址解析
// ============================================================================

// Resolve 把域名地址展开为 IP 地址列表，非域名地址原样返回
func (t *Transport) Resolve(ctx context.Context, addr multiaddr.Multiaddr) ([]multiaddr.Multiaddr, error) {
	return t.resolve(ctx, addr, t.maxDepth)
}

func (t *Transport) resolve(ctx context.Context, addr multiaddr.Multiaddr, depth int) ([]multiaddr.Multiaddr, error) {
	if !isDNS(addr) {
		return []multiaddr.Multiaddr{addr}, nil
	}
	if depth < 0 {
		return nil, ErrMaxDepthExceeded
	}

	first, rest := multiaddr.SplitFirst(addr)
	host, err := first.ValueString()
	if err != nil {
		return nil, err
	}

	switch first.Protocol().Code {
	case multiaddr.P_DNSADDR:
		return t.resolveDNSAddr(ctx, host, rest, depth)
	case multiaddr.P_DNS4:
		return t.resolveIP(ctx, host, rest, true, false)
	case multiaddr.P_DNS6:
		return t.resolveIP(ctx, host, rest, false, true)
	default:
		return t.resolveIP(ctx, host, rest, true, true)
	}
}

func (t *Transport) resolveIP(ctx context.Context, host string, rest multiaddr.Multiaddr, v4, v6 bool) ([]multiaddr.Multiaddr, error) {
	ips, err := t.resolver.LookupIP(ctx, host, v4, v6)
	if err != nil {
		return nil, err
	}

	out := make([]multiaddr.Multiaddr, 0, len(ips))
	for _, ip := range ips {
		var prefix string
		if ip4 := ip.To4(); ip4 != nil {
			prefix = "/ip4/" + ip4.String()
		} else {
			prefix = "/ip6/" + ip.String()
		}
		base, err := multiaddr.NewMultiaddr(prefix)
		if err != nil {
			continue
		}
		out = append(out, multiaddr.Join(base, rest))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", host, ErrNoRecordsFound)
	}
	log.Debug("域名解析完成", "host", host, "count", len(out))
	return out, nil
}

// resolveDNSAddr 查询 _dnsaddr TXT 记录
//
// rest 非空时（通常是 /p2p/<id>）只保留以 rest 结尾的记录。
func (t *Transport) resolveDNSAddr(ctx context.Context, host string, rest multiaddr.Multiaddr, depth int) ([]multiaddr.Multiaddr, error) {
	records, err := t.resolver.LookupTXT(ctx, DNSAddrDomainPrefix+host)
	if err != nil {
		return nil, err
	}

	var out []multiaddr.Multiaddr
	for _, rec := range records {
		ma, err := ParseDNSAddr(rec)
		if err != nil {
			continue
		}
		if rest != nil && !hasSuffix(ma, rest) {
			continue
		}
		nested, err := t.resolve(ctx, ma, depth-1)
		if err != nil {
			log.Debug("dnsaddr 子记录解析失败", "record", rec, "error", err)
			continue
		}
		out = append(out, nested...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", host, ErrNoRecordsFound)
	}
	return out, nil
}

// ParseDNSAddr 解析 dnsaddr=<multiaddr> 格式的 TXT 记录
func ParseDNSAddr(record string) (multiaddr.Multiaddr, error) {
	if !strings.HasPrefix(record, DNSAddrPrefix) {
		return nil, ErrInvalidDNSAddr
	}
	ma, err := multiaddr.NewMultiaddr(strings.TrimPrefix(record, DNSAddrPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDNSAddr, err)
	}
	return ma, nil
}

func hasSuffix(addr, suffix multiaddr.Multiaddr) bool {
	a, s := addr.Bytes(), suffix.Bytes()
	return len(a) >= len(s) && string(a[len(a)-len(s):]) == string(s)
}
