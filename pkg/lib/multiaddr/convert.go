package multiaddr

import (
	"fmt"
	"net"
	"strconv"
)

// FromTCPAddr 从 *net.TCPAddr 创建多地址
func FromTCPAddr(addr *net.TCPAddr) (Multiaddr, error) {
	if addr == nil {
		return nil, fmt.Errorf("%w: nil TCP address", ErrInvalidMultiaddr)
	}
	ipPart, err := fromIP(addr.IP, addr.Zone)
	if err != nil {
		return nil, err
	}
	return ipPart.Encapsulate(StringCast("/tcp/" + strconv.Itoa(addr.Port))), nil
}

// FromNetAddr 从 net.Addr 创建多地址
func FromNetAddr(addr net.Addr) (Multiaddr, error) {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return FromTCPAddr(a)
	case *net.UDPAddr:
		ipPart, err := fromIP(a.IP, a.Zone)
		if err != nil {
			return nil, err
		}
		return ipPart.Encapsulate(StringCast("/udp/" + strconv.Itoa(a.Port))), nil
	case *net.IPAddr:
		return fromIP(a.IP, a.Zone)
	case nil:
		return nil, fmt.Errorf("%w: nil address", ErrInvalidMultiaddr)
	default:
		return nil, fmt.Errorf("%w: unsupported address type %T", ErrInvalidMultiaddr, addr)
	}
}

func fromIP(ip net.IP, zone string) (Multiaddr, error) {
	if ip == nil {
		ip = net.IPv4zero
	}
	if ip4 := ip.To4(); ip4 != nil {
		return NewMultiaddr("/ip4/" + ip4.String())
	}
	if ip16 := ip.To16(); ip16 != nil {
		if zone != "" {
			return NewMultiaddr("/ip6zone/" + zone + "/ip6/" + ip16.String())
		}
		return NewMultiaddr("/ip6/" + ip16.String())
	}
	return nil, fmt.Errorf("%w: invalid IP %v", ErrInvalidMultiaddr, ip)
}

// DialArgs 返回 net.Dial 所需的 (network, address)
//
// 支持 /ip4|ip6|dns|dns4|dns6/<host>/tcp/<port> 前缀，后续组件被忽略。
func DialArgs(m Multiaddr) (string, string, error) {
	var (
		network = "tcp"
		host    string
		zone    string
		port    string
		stage   int
	)
	ForEach(m, func(c Component) bool {
		v, err := c.ValueString()
		if err != nil {
			return false
		}
		switch stage {
		case 0:
			switch c.proto.Code {
			case P_IP6ZONE:
				zone = v
				return true
			case P_IP4:
				network, host = "tcp4", v
			case P_IP6:
				network, host = "tcp6", v
			case P_DNS4:
				network, host = "tcp4", v
			case P_DNS6:
				network, host = "tcp6", v
			case P_DNS:
				host = v
			default:
				return false
			}
			stage = 1
			return true
		case 1:
			if c.proto.Code == P_TCP {
				port = v
				stage = 2
			}
			return false
		}
		return false
	})
	if stage != 2 {
		return "", "", fmt.Errorf("%w: %s", ErrNotDialable, m)
	}
	if zone != "" {
		host = host + "%" + zone
	}
	return network, net.JoinHostPort(host, port), nil
}

// IsIPUnspecified 判断地址的 IP 部分是否为 0.0.0.0 或 ::
func IsIPUnspecified(m Multiaddr) bool {
	first, _ := SplitFirst(m)
	switch first.proto.Code {
	case P_IP4, P_IP6:
		return net.IP(first.value).IsUnspecified()
	}
	return false
}
