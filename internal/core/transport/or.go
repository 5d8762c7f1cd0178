package transport

import (
	"context"
	"fmt"

	"github.com/dep2p/rendezvous-server/pkg/interfaces"
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
)

// orTransport 按顺序组合多个传输层
type orTransport struct {
	layers []interfaces.Transport
}

var _ interfaces.Transport = (*orTransport)(nil)

// Or 组合传输层：拨号与监听交给第一个支持该地址的层
func Or(layers ...interfaces.Transport) interfaces.Transport {
	out := make([]interfaces.Transport, 0, len(layers))
	for _, l := range layers {
		if l != nil {
			out = append(out, l)
		}
	}
	return &orTransport{layers: out}
}

func (o *orTransport) CanDial(addr multiaddr.Multiaddr) bool {
	return o.forDial(addr) != nil
}

func (o *orTransport) CanListen(addr multiaddr.Multiaddr) bool {
	return o.forListen(addr) != nil
}

func (o *orTransport) Protocols() []int {
	seen := make(map[int]struct{})
	var out []int
	for _, l := range o.layers {
		for _, p := range l.Protocols() {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				out = append(out, p)
			}
		}
	}
	return out
}

func (o *orTransport) Dial(ctx context.Context, raddr multiaddr.Multiaddr) (interfaces.Conn, error) {
	l := o.forDial(raddr)
	if l == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoTransport, raddr)
	}
	return l.Dial(ctx, raddr)
}

func (o *orTransport) Listen(laddr multiaddr.Multiaddr) (interfaces.Listener, error) {
	l := o.forListen(laddr)
	if l == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoTransport, laddr)
	}
	return l.Listen(laddr)
}

func (o *orTransport) forDial(addr multiaddr.Multiaddr) interfaces.Transport {
	for _, l := range o.layers {
		if l.CanDial(addr) {
			return l
		}
	}
	return nil
}

func (o *orTransport) forListen(addr multiaddr.Multiaddr) interfaces.Transport {
	for _, l := range o.layers {
		if l.CanListen(addr) {
			return l
		}
	}
	return nil
}
