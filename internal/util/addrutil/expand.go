package addrutil

import (
	"net"

	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
)

// interfaceAddrs 可在测试中替换
var interfaceAddrs = net.InterfaceAddrs

// ExpandUnspecified 把 0.0.0.0 / :: 监听地址展开为各网卡地址
//
// 非通配地址或无法枚举网卡时原样返回。
func ExpandUnspecified(addr multiaddr.Multiaddr) []multiaddr.Multiaddr {
	if addr == nil || !multiaddr.IsIPUnspecified(addr) {
		return []multiaddr.Multiaddr{addr}
	}
	first, rest := multiaddr.SplitFirst(addr)
	wantV4 := first.Protocol().Code == multiaddr.P_IP4

	ifaddrs, err := interfaceAddrs()
	if err != nil {
		return []multiaddr.Multiaddr{addr}
	}

	var out []multiaddr.Multiaddr
	for _, ia := range ifaddrs {
		ipnet, ok := ia.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipnet.IP
		if (ip.To4() != nil) != wantV4 || ip.IsLinkLocalUnicast() {
			continue
		}
		base, err := multiaddr.FromNetAddr(&net.IPAddr{IP: ip})
		if err != nil {
			continue
		}
		out = append(out, multiaddr.Join(base, rest))
	}
	if len(out) == 0 {
		return []multiaddr.Multiaddr{addr}
	}
	return out
}
