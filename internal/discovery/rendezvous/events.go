package rendezvous

import (
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
	pb "github.com/dep2p/rendezvous-server/pkg/lib/proto/rendezvous"
	"github.com/dep2p/rendezvous-server/pkg/types"
)

// Event 服务端事件，经 swarm.Host.Emit 进入事件队列
type Event interface {
	rendezvousEvent()
}

// PeerRegistered 节点注册成功（包括续约）
type PeerRegistered struct {
	Peer      types.PeerID
	Namespace string
	Addresses []multiaddr.Multiaddr
	// TTL 生效的 TTL（秒）
	TTL uint64
}

// PeerNotRegistered 注册被拒绝
type PeerNotRegistered struct {
	Peer      types.PeerID
	Namespace string
	Error     pb.Message_ResponseStatus
}

// PeerUnregistered 节点主动注销
type PeerUnregistered struct {
	Peer      types.PeerID
	Namespace string
}

// RegistrationExpired 注册到期被移除
type RegistrationExpired struct {
	Peer      types.PeerID
	Namespace string
	Addresses []multiaddr.Multiaddr
	TTL       uint64
}

// DiscoverServed 发现请求已应答
type DiscoverServed struct {
	Enquirer      types.PeerID
	Registrations []Registration
}

// DiscoverNotServed 发现请求被拒绝
type DiscoverNotServed struct {
	Enquirer types.PeerID
	Error    pb.Message_ResponseStatus
}

func (PeerRegistered) rendezvousEvent()      {}
func (PeerNotRegistered) rendezvousEvent()   {}
func (PeerUnregistered) rendezvousEvent()    {}
func (RegistrationExpired) rendezvousEvent() {}
func (DiscoverServed) rendezvousEvent()      {}
func (DiscoverNotServed) rendezvousEvent()   {}
