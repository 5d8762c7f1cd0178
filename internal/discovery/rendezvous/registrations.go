package rendezvous

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
	"github.com/dep2p/rendezvous-server/pkg/types"
)

// ============================================================================
//                              注册记录
// ============================================================================

// Registration 一条注册
type Registration struct {
	// ID 单调递增的注册序号，续约时重新分配
	ID uint64

	Namespace string
	Peer      types.PeerID
	Addrs     []multiaddr.Multiaddr

	// TTL 注册时生效的 TTL（秒）
	TTL uint64

	// SignedPeerRecord 原始签名信封，发现时原样返回
	SignedPeerRecord []byte

	ExpiresAt time.Time
}

type regKey struct {
	ns   string
	peer types.PeerID
}

type regEntry struct {
	Registration
	timer *clock.Timer
}

// ============================================================================
//                              registrations 存储
// ============================================================================

// registrations 内存中的注册表
//
// 每个 (namespace, peer) 至多一条注册，到期由时钟定时器移除。
// 配置了持久化时写入同步落盘。
type registrations struct {
	clock    clock.Clock
	store    *persistentStore
	onExpire func(Registration)

	mu      sync.Mutex
	lastID  uint64
	entries map[regKey]*regEntry
	closed  bool
}

func newRegistrations(clk clock.Clock, store *persistentStore, onExpire func(Registration)) *registrations {
	return &registrations{
		clock:    clk,
		store:    store,
		onExpire: onExpire,
		entries:  make(map[regKey]*regEntry),
	}
}

// add 添加或替换注册，返回分配了序号与过期时间的记录
func (r *registrations) add(reg Registration) (Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg.ExpiresAt = r.clock.Now().Add(time.Duration(reg.TTL) * time.Second)
	if err := r.store.put(reg); err != nil {
		return Registration{}, fmt.Errorf("%w: persist registration: %v", ErrInternalError, err)
	}
	return r.insertLocked(reg), nil
}

// restore 装入持久化存储中尚未过期的注册
func (r *registrations) restore(regs []Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sort.Slice(regs, func(i, j int) bool { return regs[i].ExpiresAt.Before(regs[j].ExpiresAt) })
	for _, reg := range regs {
		r.insertLocked(reg)
	}
}

func (r *registrations) insertLocked(reg Registration) Registration {
	key := regKey{ns: reg.Namespace, peer: reg.Peer}
	if old, ok := r.entries[key]; ok {
		old.timer.Stop()
	}

	r.lastID++
	reg.ID = r.lastID

	id := reg.ID
	e := &regEntry{Registration: reg}
	e.timer = r.clock.AfterFunc(reg.ExpiresAt.Sub(r.clock.Now()), func() {
		r.expire(key, id)
	})
	r.entries[key] = e
	return reg
}

// expire 定时器回调，注册已被替换或移除时不做任何事
func (r *registrations) expire(key regKey, id uint64) {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok || e.ID != id || r.closed {
		r.mu.Unlock()
		return
	}
	delete(r.entries, key)
	if err := r.store.delete(key.ns, key.peer); err != nil {
		log.Warn("删除过期注册失败", "namespace", key.ns, "peerID", key.peer.ShortString(), "error", err)
	}
	reg := e.Registration
	r.mu.Unlock()

	if r.onExpire != nil {
		r.onExpire(reg)
	}
}

// remove 移除注册
func (r *registrations) remove(ns string, peer types.PeerID) (Registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := regKey{ns: ns, peer: peer}
	e, ok := r.entries[key]
	if !ok {
		return Registration{}, false
	}
	e.timer.Stop()
	delete(r.entries, key)
	if err := r.store.delete(ns, peer); err != nil {
		log.Warn("删除注册失败", "namespace", ns, "peerID", peer.ShortString(), "error", err)
	}
	return e.Registration, true
}

// get 按命名空间与 cookie 查询，ns 为空表示全部命名空间
//
// 返回按序号升序排列的注册以及下一页 cookie。
func (r *registrations) get(ns string, cookie *Cookie, limit int) ([]Registration, Cookie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var after uint64
	if cookie != nil {
		if cookie.Namespace != ns {
			return nil, Cookie{}, fmt.Errorf("%w: namespace %q does not match request %q", ErrInvalidCookie, cookie.Namespace, ns)
		}
		if cookie.ID > r.lastID {
			return nil, Cookie{}, fmt.Errorf("%w: unknown registration id %d", ErrInvalidCookie, cookie.ID)
		}
		after = cookie.ID
	}

	now := r.clock.Now()
	var out []Registration
	for _, e := range r.entries {
		if e.ID <= after || (ns != "" && e.Namespace != ns) || !now.Before(e.ExpiresAt) {
			continue
		}
		out = append(out, e.Registration)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	next := Cookie{ID: after, Namespace: ns}
	if len(out) > 0 {
		next.ID = out[len(out)-1].ID
	}
	return out, next, nil
}

// len 当前注册数
func (r *registrations) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// close 停止全部定时器，持久化的注册保留
func (r *registrations) close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for _, e := range r.entries {
		e.timer.Stop()
	}
}
