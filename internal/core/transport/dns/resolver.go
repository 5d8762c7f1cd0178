package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	mdns "github.com/miekg/dns"
	"go.uber.org/multierr"
)

const (
	// DNSAddrPrefix dnsaddr TXT 记录前缀
	DNSAddrPrefix = "dnsaddr="

	// DNSAddrDomainPrefix dnsaddr 查询域名前缀
	DNSAddrDomainPrefix = "_dnsaddr."

	// DefaultResolvConf 系统解析配置路径
	DefaultResolvConf = "/etc/resolv.conf"

	defaultTimeout = 5 * time.Second
)

// ============================================================================
//                              Resolver 接口
// ============================================================================

// Resolver 域名解析
type Resolver interface {
	// LookupIP 查询 A（v4）和/或 AAAA（v6）记录
	LookupIP(ctx context.Context, host string, v4, v6 bool) ([]net.IP, error)

	// LookupTXT 查询 TXT 记录
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// NewResolver 按系统配置创建解析器
//
// resolvConf 可读时使用 miekg/dns 客户端；否则回退到 net.DefaultResolver。
func NewResolver(resolvConf string) Resolver {
	conf, err := mdns.ClientConfigFromFile(resolvConf)
	if err != nil || len(conf.Servers) == 0 {
		log.Debug("无法读取系统 DNS 配置，使用内置解析器", "path", resolvConf, "error", err)
		return &netResolver{r: net.DefaultResolver}
	}

	timeout := defaultTimeout
	if conf.Timeout > 0 {
		timeout = time.Duration(conf.Timeout) * time.Second
	}
	servers := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		servers = append(servers, net.JoinHostPort(s, conf.Port))
	}
	return &clientResolver{
		client:  &mdns.Client{Timeout: timeout},
		servers: servers,
	}
}

// ============================================================================
//                              miekg/dns 实现
// ============================================================================

// clientResolver 直接向配置的服务器发送查询
type clientResolver struct {
	client  *mdns.Client
	servers []string
}

func (r *clientResolver) LookupIP(ctx context.Context, host string, v4, v6 bool) ([]net.IP, error) {
	var (
		ips  []net.IP
		errs error
	)
	if v4 {
		rrs, err := r.query(ctx, host, mdns.TypeA)
		errs = multierr.Append(errs, err)
		for _, rr := range rrs {
			if a, ok := rr.(*mdns.A); ok {
				ips = append(ips, a.A)
			}
		}
	}
	if v6 {
		rrs, err := r.query(ctx, host, mdns.TypeAAAA)
		errs = multierr.Append(errs, err)
		for _, rr := range rrs {
			if a, ok := rr.(*mdns.AAAA); ok {
				ips = append(ips, a.AAAA)
			}
		}
	}
	if len(ips) == 0 {
		if errs == nil {
			errs = ErrNoRecordsFound
		}
		return nil, fmt.Errorf("lookup %s: %w", host, errs)
	}
	return ips, nil
}

func (r *clientResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	rrs, err := r.query(ctx, name, mdns.TypeTXT)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, rr := range rrs {
		if txt, ok := rr.(*mdns.TXT); ok {
			out = append(out, strings.Join(txt.Txt, ""))
		}
	}
	return out, nil
}

// query 依次尝试各服务器，返回第一个成功应答的 Answer 段
func (r *clientResolver) query(ctx context.Context, name string, qtype uint16) ([]mdns.RR, error) {
	msg := new(mdns.Msg)
	msg.SetQuestion(mdns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	var errs error
	for _, server := range r.servers {
		resp, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		switch resp.Rcode {
		case mdns.RcodeSuccess:
			return resp.Answer, nil
		case mdns.RcodeNameError:
			return nil, fmt.Errorf("%s: %w", name, ErrNoRecordsFound)
		default:
			errs = multierr.Append(errs, fmt.Errorf("%s: rcode %s", server, mdns.RcodeToString[resp.Rcode]))
		}
	}
	return nil, errs
}

// ============================================================================
//                              内置解析器回退
// ============================================================================

type netResolver struct {
	r *net.Resolver
}

func (r *netResolver) LookupIP(ctx context.Context, host string, v4, v6 bool) ([]net.IP, error) {
	network := "ip"
	switch {
	case v4 && !v6:
		network = "ip4"
	case v6 && !v4:
		network = "ip6"
	}
	return r.r.LookupIP(ctx, network, host)
}

func (r *netResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	records, err := r.r.LookupTXT(ctx, name)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, fmt.Errorf("%s: %w", name, ErrNoRecordsFound)
		}
		return nil, err
	}
	return records, nil
}
