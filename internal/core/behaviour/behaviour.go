package behaviour

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/dep2p/rendezvous-server/internal/core/protocol/system/ping"
	"github.com/dep2p/rendezvous-server/internal/core/swarm"
	"github.com/dep2p/rendezvous-server/internal/discovery/rendezvous"
	"github.com/dep2p/rendezvous-server/internal/util/logger"
	"github.com/dep2p/rendezvous-server/pkg/types"
)

var log = logger.Logger("core/behaviour")

// ErrNilRendezvous 未提供 Rendezvous 服务端
var ErrNilRendezvous = errors.New("behaviour: rendezvous server is required")

// Event 子行为事件，恰有一个字段非空
type Event struct {
	Rendezvous rendezvous.Event
	Ping       *ping.Event
}

// Aggregate 组合行为
type Aggregate struct {
	rendezvous *rendezvous.Server
	ping       *ping.Service

	handlers map[types.ProtocolID]swarm.Behaviour
}

var _ swarm.Behaviour = (*Aggregate)(nil)

// New 创建组合行为，pinger 为 nil 表示禁用 Ping
func New(rdv *rendezvous.Server, pinger *ping.Service) (*Aggregate, error) {
	if rdv == nil {
		return nil, ErrNilRendezvous
	}
	a := &Aggregate{
		rendezvous: rdv,
		ping:       pinger,
		handlers:   make(map[types.ProtocolID]swarm.Behaviour),
	}
	for _, b := range a.children() {
		for _, p := range b.Protocols() {
			if _, dup := a.handlers[p]; dup {
				return nil, fmt.Errorf("behaviour: protocol %s registered twice", p)
			}
			a.handlers[p] = b
		}
	}
	return a, nil
}

// children 已启用的子行为
func (a *Aggregate) children() []swarm.Behaviour {
	out := []swarm.Behaviour{a.rendezvous}
	if a.ping != nil {
		out = append(out, a.ping)
	}
	return out
}

// Rendezvous 返回 Rendezvous 服务端
func (a *Aggregate) Rendezvous() *rendezvous.Server {
	return a.rendezvous
}

// PingEnabled 是否启用 Ping
func (a *Aggregate) PingEnabled() bool {
	return a.ping != nil
}

// Protocols 实现 swarm.Behaviour
func (a *Aggregate) Protocols() []types.ProtocolID {
	var out []types.ProtocolID
	for _, b := range a.children() {
		out = append(out, b.Protocols()...)
	}
	return out
}

// HandleStream 按协商出的协议分发
func (a *Aggregate) HandleStream(st *swarm.Stream) {
	b, ok := a.handlers[st.Protocol()]
	if !ok {
		log.Debug("没有处理该协议的行为", "protocol", st.Protocol(), "peerID", st.RemotePeer().ShortString())
		_ = st.Reset()
		return
	}
	b.HandleStream(st)
}

// ConnectionEstablished 实现 swarm.Behaviour
func (a *Aggregate) ConnectionEstablished(c *swarm.Conn) {
	for _, b := range a.children() {
		b.ConnectionEstablished(c)
	}
}

// ConnectionClosed 实现 swarm.Behaviour
func (a *Aggregate) ConnectionClosed(c *swarm.Conn) {
	for _, b := range a.children() {
		b.ConnectionClosed(c)
	}
}

// Start 为每个子行为绑定包装事件的 Host
func (a *Aggregate) Start(h swarm.Host) error {
	if err := a.rendezvous.Start(&wrappedHost{Host: h, wrap: wrapRendezvous}); err != nil {
		return fmt.Errorf("start rendezvous: %w", err)
	}
	if a.ping != nil {
		if err := a.ping.Start(&wrappedHost{Host: h, wrap: wrapPing}); err != nil {
			return fmt.Errorf("start ping: %w", err)
		}
	}
	return nil
}

// Close 关闭全部子行为
func (a *Aggregate) Close() error {
	var err error
	for _, b := range a.children() {
		err = multierr.Append(err, b.Close())
	}
	return err
}

// ============================================================================
//                              事件包装
// ============================================================================

// wrappedHost 把子行为事件包装为 Event
type wrappedHost struct {
	swarm.Host
	wrap func(ev any) (Event, bool)
}

func (h *wrappedHost) Emit(ev any) {
	wrapped, ok := h.wrap(ev)
	if !ok {
		log.Warn("丢弃未知类型的行为事件", "type", fmt.Sprintf("%T", ev))
		return
	}
	h.Host.Emit(wrapped)
}

func wrapRendezvous(ev any) (Event, bool) {
	rev, ok := ev.(rendezvous.Event)
	if !ok {
		return Event{}, false
	}
	return Event{Rendezvous: rev}, true
}

func wrapPing(ev any) (Event, bool) {
	pev, ok := ev.(ping.Event)
	if !ok {
		return Event{}, false
	}
	return Event{Ping: &pev}, true
}
