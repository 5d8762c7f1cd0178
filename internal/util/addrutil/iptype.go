// Package addrutil 提供地址分类与展开工具
package addrutil

import (
	"net"

	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
)

// ============================================================================
//                              IP 类型判断工具
// ============================================================================

// IsLoopbackAddr 是否为回环地址
func IsLoopbackAddr(addr multiaddr.Multiaddr) bool {
	ip := ExtractIP(addr)
	return ip != nil && ip.IsLoopback()
}

// IsPrivateAddr 是否为私网或链路本地地址
func IsPrivateAddr(addr multiaddr.Multiaddr) bool {
	ip := ExtractIP(addr)
	return ip != nil && (ip.IsPrivate() || ip.IsLinkLocalUnicast())
}

// IsPublicAddr 是否为公网单播地址
func IsPublicAddr(addr multiaddr.Multiaddr) bool {
	ip := ExtractIP(addr)
	return ip != nil && ip.IsGlobalUnicast() && !ip.IsPrivate() && !ip.IsLoopback()
}

// ExtractIP 返回首个 /ip4 或 /ip6 组件的 IP，域名地址返回 nil
func ExtractIP(addr multiaddr.Multiaddr) net.IP {
	if addr == nil {
		return nil
	}
	first, _ := multiaddr.SplitFirst(addr)
	switch first.Protocol().Code {
	case multiaddr.P_IP4, multiaddr.P_IP6:
		return net.IP(first.RawValue())
	}
	return nil
}

// AddrType 返回地址类型描述
//
// 返回值：loopback、private、public、dns、unknown
func AddrType(addr multiaddr.Multiaddr) string {
	if addr == nil {
		return "unknown"
	}
	first, _ := multiaddr.SplitFirst(addr)
	switch first.Protocol().Code {
	case multiaddr.P_DNS, multiaddr.P_DNS4, multiaddr.P_DNS6, multiaddr.P_DNSADDR:
		return "dns"
	}

	switch {
	case IsLoopbackAddr(addr):
		return "loopback"
	case IsPrivateAddr(addr):
		return "private"
	case IsPublicAddr(addr):
		return "public"
	}
	return "unknown"
}
