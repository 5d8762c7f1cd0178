package upgrader

import (
	"errors"
	"fmt"
)

var (
	// ErrNilSecurity 未提供安全传输
	ErrNilSecurity = errors.New("upgrader: security transport is nil")

	// ErrNoStreamMuxer 没有流复用器
	ErrNoStreamMuxer = errors.New("upgrader: no stream muxer configured")

	// ErrUpgradeTimeout 升级未在时限内完成
	ErrUpgradeTimeout = errors.New("upgrader: upgrade timed out")

	// ErrNegotiationFailed 协商结果不在本地支持列表中
	ErrNegotiationFailed = errors.New("upgrader: protocol negotiation failed")
)

// UpgradeError 标明失败的升级阶段
type UpgradeError struct {
	Stage Stage
	Err   error
}

func (e *UpgradeError) Error() string {
	return fmt.Sprintf("upgrade %s: %v", e.Stage, e.Err)
}

func (e *UpgradeError) Unwrap() error {
	return e.Err
}
