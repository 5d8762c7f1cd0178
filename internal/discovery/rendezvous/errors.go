package rendezvous

import (
	"errors"

	pb "github.com/dep2p/rendezvous-server/pkg/lib/proto/rendezvous"
)

// 预定义错误
var (
	// ErrInvalidNamespace 无效的命名空间
	ErrInvalidNamespace = errors.New("rendezvous: invalid namespace")

	// ErrInvalidTTL TTL 超出允许范围
	ErrInvalidTTL = errors.New("rendezvous: invalid TTL")

	// ErrInvalidCookie 无效的分页 cookie
	ErrInvalidCookie = errors.New("rendezvous: invalid cookie")

	// ErrInvalidSignedPeerRecord 签名节点记录无法解析或验签失败
	ErrInvalidSignedPeerRecord = errors.New("rendezvous: invalid signed peer record")

	// ErrNotAuthorized 记录签名者不是连接的对端
	ErrNotAuthorized = errors.New("rendezvous: not authorized")

	// ErrUnavailable 注册频率超限
	ErrUnavailable = errors.New("rendezvous: service unavailable")

	// ErrInternalError 内部错误（持久化失败等）
	ErrInternalError = errors.New("rendezvous: internal error")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("rendezvous: invalid configuration")

	// ErrUnexpectedMessage 请求类型不是 REGISTER/UNREGISTER/DISCOVER 或缺少消息体
	ErrUnexpectedMessage = errors.New("rendezvous: unexpected message")

	// ErrAlreadyStarted 已启动
	ErrAlreadyStarted = errors.New("rendezvous: already started")
)

// statusOf 把错误映射为响应状态
func statusOf(err error) pb.Message_ResponseStatus {
	switch {
	case err == nil:
		return pb.Message_OK
	case errors.Is(err, ErrInvalidNamespace):
		return pb.Message_E_INVALID_NAMESPACE
	case errors.Is(err, ErrInvalidTTL):
		return pb.Message_E_INVALID_TTL
	case errors.Is(err, ErrInvalidCookie):
		return pb.Message_E_INVALID_COOKIE
	case errors.Is(err, ErrInvalidSignedPeerRecord):
		return pb.Message_E_INVALID_SIGNED_PEER_RECORD
	case errors.Is(err, ErrNotAuthorized):
		return pb.Message_E_NOT_AUTHORIZED
	case errors.Is(err, ErrUnavailable):
		return pb.Message_E_UNAVAILABLE
	default:
		return pb.Message_E_INTERNAL_ERROR
	}
}
