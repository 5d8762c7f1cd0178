package rendezvous

import (
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"

	"github.com/dep2p/rendezvous-server/pkg/types"
)

// limiterIdleExpiry 节点超过该时长没有注册请求时丢弃其令牌桶
const limiterIdleExpiry = 5 * time.Minute

// registerLimiter 按节点限制 REGISTER 频率
//
// 每个节点一个令牌桶，速率为 perSecond，突发为 2×perSecond（至少 1）。
// nil 表示不限制。
type registerLimiter struct {
	clock clock.Clock
	limit rate.Limit
	burst int

	mu        sync.Mutex
	peers     map[types.PeerID]*peerBucket
	lastPrune time.Time
}

type peerBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newRegisterLimiter(clk clock.Clock, perSecond float64) *registerLimiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(math.Ceil(2 * perSecond))
	if burst < 1 {
		burst = 1
	}
	return &registerLimiter{
		clock:     clk,
		limit:     rate.Limit(perSecond),
		burst:     burst,
		peers:     make(map[types.PeerID]*peerBucket),
		lastPrune: clk.Now(),
	}
}

// allow 消耗一个令牌
func (l *registerLimiter) allow(peer types.PeerID) bool {
	if l == nil {
		return true
	}
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastPrune) >= limiterIdleExpiry {
		l.pruneLocked(now)
	}

	b, ok := l.peers[peer]
	if !ok {
		b = &peerBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.peers[peer] = b
	}
	b.lastSeen = now
	return b.lim.AllowN(now, 1)
}

// pruneLocked 丢弃空闲的令牌桶
func (l *registerLimiter) pruneLocked(now time.Time) {
	for peer, b := range l.peers {
		if now.Sub(b.lastSeen) >= limiterIdleExpiry {
			delete(l.peers, peer)
		}
	}
	l.lastPrune = now
}

// size 当前跟踪的节点数
func (l *registerLimiter) size() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.peers)
}
