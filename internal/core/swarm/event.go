package swarm

import (
	"context"
	"sync"

	"github.com/dep2p/rendezvous-server/internal/core/upgrader"
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
	"github.com/dep2p/rendezvous-server/pkg/types"
)

// ============================================================================
//                              事件类型
// ============================================================================

// Event Swarm 事件
type Event interface {
	swarmEvent()
}

// NewListenAddr 新的本地监听地址
type NewListenAddr struct {
	Address multiaddr.Multiaddr
}

// ListenerClosed 监听器关闭，Err 为 nil 表示主动关闭
type ListenerClosed struct {
	Address multiaddr.Multiaddr
	Err     error
}

// ConnectionEstablished 连接完成升级
type ConnectionEstablished struct {
	Peer           types.PeerID
	ConnID         uint64
	Endpoint       multiaddr.Multiaddr
	Direction      upgrader.Direction
	NumEstablished int
}

// ConnectionClosed 连接关闭
type ConnectionClosed struct {
	Peer           types.PeerID
	ConnID         uint64
	Endpoint       multiaddr.Multiaddr
	NumEstablished int
}

// IncomingConnectionError 入站连接升级失败
type IncomingConnectionError struct {
	LocalAddr  multiaddr.Multiaddr
	RemoteAddr multiaddr.Multiaddr
	Stage      upgrader.Stage
	Err        error
}

// BehaviourEvent 行为上报的事件
type BehaviourEvent struct {
	Event any
}

func (NewListenAddr) swarmEvent()           {}
func (ListenerClosed) swarmEvent()          {}
func (ConnectionEstablished) swarmEvent()   {}
func (ConnectionClosed) swarmEvent()        {}
func (IncomingConnectionError) swarmEvent() {}
func (BehaviourEvent) swarmEvent()          {}

// ============================================================================
//                              事件队列
// ============================================================================

// eventQueue 无界有序队列
//
// 生产者永不阻塞；关闭后丢弃新事件，已排队的事件仍可取出。
// 不设上限，积压由唯一的消费者（事件循环）及时取走来约束。
type eventQueue struct {
	mu     sync.Mutex
	items  []Event
	notify chan struct{}
	closed bool
}

func newEventQueue() *eventQueue {
	return &eventQueue{notify: make(chan struct{}, 1)}
}

func (q *eventQueue) push(ev Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *eventQueue) next(ctx context.Context) (Event, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			ev := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			return ev, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, ErrSwarmClosed
		}

		select {
		case <-q.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}
