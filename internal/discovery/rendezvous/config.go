package rendezvous

import (
	"fmt"
	"time"

	"github.com/dep2p/rendezvous-server/config"
	pb "github.com/dep2p/rendezvous-server/pkg/lib/proto/rendezvous"
)

// 协议常量
const (
	// MinTTL 最小注册 TTL
	MinTTL = 2 * time.Hour

	// MaxTTL 最大注册 TTL
	MaxTTL = 72 * time.Hour

	// DefaultTTL 请求未携带 TTL 时使用
	DefaultTTL = 2 * time.Hour

	// MaxNamespaceLength 命名空间最大字节数
	MaxNamespaceLength = 255

	// MaxDiscoverLimit 单次发现返回的注册上限
	MaxDiscoverLimit = 1000

	// DefaultRequestTimeout 单个请求流的读写超时
	DefaultRequestTimeout = 30 * time.Second
)

// Config Rendezvous 服务端配置
type Config struct {
	// MinTTL / MaxTTL 允许的注册 TTL 范围
	MinTTL time.Duration
	MaxTTL time.Duration

	// DefaultTTL 请求未携带 TTL 时使用
	DefaultTTL time.Duration

	// MaxDiscoverLimit 单次发现返回的注册上限
	MaxDiscoverLimit int

	// MaxRegisterRate 单个节点每秒允许的 REGISTER 次数，0 表示不限制
	MaxRegisterRate float64

	// RequestTimeout 单个请求流的读写超时
	RequestTimeout time.Duration

	// MaxMessageSize 单条消息最大字节数
	MaxMessageSize int
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		MinTTL:           MinTTL,
		MaxTTL:           MaxTTL,
		DefaultTTL:       DefaultTTL,
		MaxDiscoverLimit: MaxDiscoverLimit,
		RequestTimeout:   DefaultRequestTimeout,
		MaxMessageSize:   pb.MaxMessageSize,
	}
}

// ConfigFromUnified 从统一配置创建服务端配置
func ConfigFromUnified(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg != nil {
		c.MaxRegisterRate = cfg.Rendezvous.MaxRegisterRate
	}
	return c
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.MinTTL <= 0 || c.MaxTTL < c.MinTTL {
		return fmt.Errorf("%w: ttl range [%v, %v]", ErrInvalidConfig, c.MinTTL, c.MaxTTL)
	}
	if c.DefaultTTL < c.MinTTL || c.DefaultTTL > c.MaxTTL {
		return fmt.Errorf("%w: default ttl %v outside [%v, %v]", ErrInvalidConfig, c.DefaultTTL, c.MinTTL, c.MaxTTL)
	}
	if c.MaxDiscoverLimit <= 0 {
		return fmt.Errorf("%w: discover limit must be positive", ErrInvalidConfig)
	}
	if c.MaxRegisterRate < 0 {
		return fmt.Errorf("%w: negative register rate", ErrInvalidConfig)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("%w: message size must be positive", ErrInvalidConfig)
	}
	return nil
}

// ============================================================================
//                              验证函数
// ============================================================================

// ValidateNamespace 验证命名空间
func ValidateNamespace(namespace string) error {
	if namespace == "" {
		return fmt.Errorf("%w: empty namespace", ErrInvalidNamespace)
	}
	if len(namespace) > MaxNamespaceLength {
		return fmt.Errorf("%w: namespace too long (%d > %d)", ErrInvalidNamespace, len(namespace), MaxNamespaceLength)
	}
	return nil
}

// effectiveTTL 返回请求生效的 TTL（秒），未携带时使用默认值
func (c *Config) effectiveTTL(ttl *uint64) (uint64, error) {
	if ttl == nil {
		return uint64(c.DefaultTTL / time.Second), nil
	}
	d := time.Duration(*ttl) * time.Second
	if *ttl > uint64(c.MaxTTL/time.Second) || d < c.MinTTL {
		return 0, fmt.Errorf("%w: %ds outside [%v, %v]", ErrInvalidTTL, *ttl, c.MinTTL, c.MaxTTL)
	}
	return *ttl, nil
}
