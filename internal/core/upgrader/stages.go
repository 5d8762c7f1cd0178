package upgrader

import (
	"context"
	"fmt"
	"net"
	"time"

	mss "github.com/multiformats/go-multistream"

	"github.com/dep2p/rendezvous-server/internal/core/muxer"
	"github.com/dep2p/rendezvous-server/internal/core/security/noise"
	"github.com/dep2p/rendezvous-server/pkg/types"
)

// Stage 升级阶段名称
type Stage string

const (
	StageNegotiateSecurity Stage = "negotiate-security"
	StageAuthenticate      Stage = "authenticate"
	StageNegotiateMuxer    Stage = "negotiate-muxer"
)

// state 在阶段之间传递
type state struct {
	raw        net.Conn
	dir        Direction
	remotePeer types.PeerID

	secure *noise.Conn
	muxer  muxer.Multiplexer
}

type stage struct {
	name Stage
	run  func(ctx context.Context, u *Upgrader, st *state) error
}

// pipeline 返回按顺序执行的阶段
func pipeline() []stage {
	return []stage{
		{StageNegotiateSecurity, negotiateSecurity},
		{StageAuthenticate, authenticate},
		{StageNegotiateMuxer, negotiateMuxer},
	}
}

// ============================================================================
//                              各阶段实现
// ============================================================================

// negotiateSecurity 在原始连接上协商 /noise
func negotiateSecurity(ctx context.Context, u *Upgrader, st *state) error {
	selected, err := negotiate(ctx, st.raw, st.dir == DirInbound, []string{u.security.ID()})
	if err != nil {
		return err
	}
	if selected != u.security.ID() {
		return fmt.Errorf("%w: %s", ErrNegotiationFailed, selected)
	}
	return nil
}

// authenticate Noise XX 握手
func authenticate(ctx context.Context, u *Upgrader, st *state) error {
	var (
		sc  *noise.Conn
		err error
	)
	if st.dir == DirInbound {
		sc, err = u.security.SecureInbound(ctx, st.raw)
	} else {
		sc, err = u.security.SecureOutbound(ctx, st.raw, st.remotePeer)
	}
	if err != nil {
		return err
	}
	st.secure = sc
	return nil
}

// negotiateMuxer 在加密连接上协商多路复用器
func negotiateMuxer(ctx context.Context, u *Upgrader, st *state) error {
	ids := make([]string, len(u.muxers))
	for i, m := range u.muxers {
		ids[i] = m.ID()
	}

	selected, err := negotiate(ctx, st.secure, st.dir == DirInbound, ids)
	if err != nil {
		return err
	}
	for _, m := range u.muxers {
		if m.ID() == selected {
			st.muxer = m
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNegotiationFailed, selected)
}

// negotiate 执行一次 multistream-select
//
// 响应方从发起方的提议中选择第一个本地支持的协议；发起方按 protos 顺序提议。
func negotiate(ctx context.Context, conn net.Conn, isServer bool, protos []string) (string, error) {
	if d, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(d); err != nil {
			return "", fmt.Errorf("set deadline: %w", err)
		}
		defer conn.SetDeadline(time.Time{})
	}

	if isServer {
		m := mss.NewMultistreamMuxer[string]()
		for _, p := range protos {
			m.AddHandler(p, nil)
		}
		selected, _, err := m.Negotiate(conn)
		if err != nil {
			return "", fmt.Errorf("server negotiation: %w", err)
		}
		return selected, nil
	}

	selected, err := mss.SelectOneOf(protos, conn)
	if err != nil {
		return "", fmt.Errorf("client negotiation: %w", err)
	}
	return selected, nil
}
