package multiaddr

import "github.com/multiformats/go-varint"

// Protocol 描述一个 multiaddr 协议
type Protocol struct {
	// Name 协议名称（如 "ip4", "tcp"）
	Name string

	// Code 协议代码
	Code int

	// VCode 预计算的 varint 编码
	VCode []byte

	// Size 协议数据大小（位）
	// 0 表示无数据，LengthPrefixedVarSize 表示变长
	Size int

	// Path 是否为路径协议（消费剩余全部字符串）
	Path bool

	// Transcoder 编解码器
	Transcoder Transcoder
}

// String 返回协议名称
func (p Protocol) String() string {
	return p.Name
}

// LengthPrefixedVarSize 表示变长数据（使用 varint 前缀）
const LengthPrefixedVarSize = -1

// 协议代码常量（与 multiformats/multicodec 对齐）
const (
	P_IP4           = 0x0004
	P_TCP           = 0x0006
	P_UDP           = 0x0111
	P_IP6           = 0x0029
	P_IP6ZONE       = 0x002A
	P_DNS           = 0x0035
	P_DNS4          = 0x0036
	P_DNS6          = 0x0037
	P_DNSADDR       = 0x0038
	P_UNIX          = 0x0190
	P_P2P           = 0x01A5
	P_HTTP          = 0x01E0
	P_HTTPS         = 0x01BB
	P_TLS           = 0x01C0
	P_SNI           = 0x01C1
	P_NOISE         = 0x01C6
	P_QUIC          = 0x01CC
	P_QUIC_V1       = 0x01CD
	P_WEBTRANSPORT  = 0x01D1
	P_CERTHASH      = 0x01D2
	P_WS            = 0x01DD
	P_WSS           = 0x01DE
	P_P2P_CIRCUIT   = 0x0122
	P_WEBRTC_DIRECT = 0x0118
	P_WEBRTC        = 0x0119
)

func newProtocol(name string, code, size int, t Transcoder) Protocol {
	return Protocol{
		Name:       name,
		Code:       code,
		VCode:      varint.ToUvarint(uint64(code)),
		Size:       size,
		Transcoder: t,
	}
}

var registry = []Protocol{
	newProtocol("ip4", P_IP4, 32, TranscoderIP4),
	newProtocol("tcp", P_TCP, 16, TranscoderPort),
	newProtocol("udp", P_UDP, 16, TranscoderPort),
	newProtocol("ip6", P_IP6, 128, TranscoderIP6),
	newProtocol("ip6zone", P_IP6ZONE, LengthPrefixedVarSize, TranscoderText),
	newProtocol("dns", P_DNS, LengthPrefixedVarSize, TranscoderText),
	newProtocol("dns4", P_DNS4, LengthPrefixedVarSize, TranscoderText),
	newProtocol("dns6", P_DNS6, LengthPrefixedVarSize, TranscoderText),
	newProtocol("dnsaddr", P_DNSADDR, LengthPrefixedVarSize, TranscoderText),
	func() Protocol {
		p := newProtocol("unix", P_UNIX, LengthPrefixedVarSize, TranscoderUnix)
		p.Path = true
		return p
	}(),
	newProtocol("p2p", P_P2P, LengthPrefixedVarSize, TranscoderP2P),
	newProtocol("http", P_HTTP, 0, nil),
	newProtocol("https", P_HTTPS, 0, nil),
	newProtocol("tls", P_TLS, 0, nil),
	newProtocol("sni", P_SNI, LengthPrefixedVarSize, TranscoderText),
	newProtocol("noise", P_NOISE, 0, nil),
	newProtocol("quic", P_QUIC, 0, nil),
	newProtocol("quic-v1", P_QUIC_V1, 0, nil),
	newProtocol("webtransport", P_WEBTRANSPORT, 0, nil),
	newProtocol("certhash", P_CERTHASH, LengthPrefixedVarSize, TranscoderCertHash),
	newProtocol("ws", P_WS, 0, nil),
	newProtocol("wss", P_WSS, 0, nil),
	newProtocol("p2p-circuit", P_P2P_CIRCUIT, 0, nil),
	newProtocol("webrtc-direct", P_WEBRTC_DIRECT, 0, nil),
	newProtocol("webrtc", P_WEBRTC, 0, nil),
}

var (
	protocolsByName = make(map[string]Protocol, len(registry))
	protocolsByCode = make(map[int]Protocol, len(registry))
)

func init() {
	for _, p := range registry {
		protocolsByName[p.Name] = p
		protocolsByCode[p.Code] = p
	}
	// 旧名称兼容
	protocolsByName["ipfs"] = protocolsByCode[P_P2P]
}

// ProtocolWithName 根据协议名称获取协议，未知时返回零值
func ProtocolWithName(name string) Protocol {
	return protocolsByName[name]
}

// ProtocolWithCode 根据协议代码获取协议，未知时返回零值
func ProtocolWithCode(code int) Protocol {
	return protocolsByCode[code]
}
