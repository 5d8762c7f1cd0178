package swarm

import (
	"errors"
	"fmt"

	tec "github.com/jbenet/go-temp-err-catcher"

	"github.com/dep2p/rendezvous-server/internal/core/upgrader"
	"github.com/dep2p/rendezvous-server/internal/util/addrutil"
	"github.com/dep2p/rendezvous-server/pkg/interfaces"
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
)

// Listen 在地址上监听并启动 Accept 循环
//
// 返回实际绑定的地址（端口 0 已替换）。每个对外地址以 NewListenAddr
// 事件上报，通配地址按网卡展开。
func (s *Swarm) Listen(addr multiaddr.Multiaddr) (multiaddr.Multiaddr, error) {
	if s.closed.Load() {
		return nil, ErrSwarmClosed
	}

	l, err := s.transport.Listen(addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addrString(addr), err)
	}
	bound := l.Multiaddr()

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		l.Close()
		return nil, ErrSwarmClosed
	}
	s.listeners[l] = bound
	s.wg.Add(1)
	s.mu.Unlock()

	log.Debug("监听地址成功", "addr", bound.String())
	for _, a := range expandListenAddr(bound) {
		s.events.push(NewListenAddr{Address: a})
	}

	go s.acceptLoop(l, bound)
	return bound, nil
}

// CloseListener 关闭绑定在 addr 上的监听器
func (s *Swarm) CloseListener(addr multiaddr.Multiaddr) error {
	s.mu.Lock()
	var target interfaces.Listener
	for l, bound := range s.listeners {
		if bound.Equal(addr) {
			target = l
			delete(s.listeners, l)
			break
		}
	}
	s.mu.Unlock()

	if target == nil {
		return fmt.Errorf("no listener on %s", addrString(addr))
	}
	return target.Close()
}

// acceptLoop 接受连接循环
func (s *Swarm) acceptLoop(l interfaces.Listener, bound multiaddr.Multiaddr) {
	defer s.wg.Done()

	var catcher tec.TempErrCatcher
	for {
		raw, err := l.Accept()
		if err != nil {
			if catcher.IsTemporary(err) {
				log.Warn("接受连接出现临时错误，稍后重试", "addr", bound.String(), "error", err)
				continue
			}
			s.listenerClosed(l, bound, err)
			return
		}
		catcher.Reset()

		go s.upgradeInbound(raw)
	}
}

// listenerClosed 移除监听器并上报；主动关闭时 Err 为 nil
func (s *Swarm) listenerClosed(l interfaces.Listener, bound multiaddr.Multiaddr, err error) {
	s.mu.Lock()
	_, owned := s.listeners[l]
	delete(s.listeners, l)
	s.mu.Unlock()

	if !owned || s.closed.Load() {
		s.events.push(ListenerClosed{Address: bound})
		return
	}

	log.Warn("监听器异常关闭", "addr", bound.String(), "error", err)
	_ = l.Close()
	s.events.push(ListenerClosed{Address: bound, Err: err})
}

// upgradeInbound 升级入站连接，失败只影响该连接
func (s *Swarm) upgradeInbound(raw interfaces.Conn) {
	uc, err := s.transport.Upgrade(s.ctx, raw)
	if err != nil {
		var stage upgrader.Stage
		var ue *upgrader.UpgradeError
		if errors.As(err, &ue) {
			stage = ue.Stage
		}
		s.metrics.UpgradeFailed(string(stage))
		log.Debug("入站连接升级失败",
			"remote", addrString(raw.RemoteMultiaddr()),
			"stage", string(stage),
			"error", err)

		if !s.closed.Load() {
			s.events.push(IncomingConnectionError{
				LocalAddr:  raw.LocalMultiaddr(),
				RemoteAddr: raw.RemoteMultiaddr(),
				Stage:      stage,
				Err:        err,
			})
		}
		return
	}

	if uc.RemotePeer() == s.localPeer {
		log.Debug("拒绝来自自己的连接")
		uc.Close()
		return
	}
	s.addConn(uc)
}

func expandListenAddr(addr multiaddr.Multiaddr) []multiaddr.Multiaddr {
	return addrutil.ExpandUnspecified(addr)
}
