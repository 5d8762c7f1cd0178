package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"time"

	"go.uber.org/dig"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/rendezvous-server/config"
	"github.com/dep2p/rendezvous-server/internal/core/identity"
	"github.com/dep2p/rendezvous-server/internal/core/metrics"
	"github.com/dep2p/rendezvous-server/internal/core/swarm"
	"github.com/dep2p/rendezvous-server/internal/util/logger"
)

// 默认生命周期时限
const (
	defaultStartTimeout = 15 * time.Second
	defaultStopTimeout  = 15 * time.Second
)

// Bootstrap 应用引导程序
//
// Bootstrap 负责：
//   - 应用日志配置
//   - 组装 fx 模块
//   - 管理应用生命周期
type Bootstrap struct {
	config *config.Config

	logOutput    io.Writer
	fxOptions    []fx.Option
	startTimeout time.Duration
	stopTimeout  time.Duration

	fxApp   *fx.App
	runtime Runtime
}

// NewBootstrap 创建引导程序
func NewBootstrap(cfg *config.Config, opts ...BootstrapOption) *Bootstrap {
	b := &Bootstrap{
		config:       cfg,
		startTimeout: defaultStartTimeout,
		stopTimeout:  defaultStopTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build 构建并启动全部模块，但不绑定监听地址
//
// 身份、TLS 材料与传输栈的错误在这里返回。
func (b *Bootstrap) Build() (*Runtime, error) {
	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// 必须在所有模块初始化之前
	b.setupLogging()

	b.fxApp = fx.New(
		fx.Options(b.setupModules()...),
		fx.StartTimeout(b.startTimeout),
		fx.StopTimeout(b.stopTimeout),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
		fx.Populate(&b.runtime.Server, &b.runtime.Swarm, &b.runtime.Behaviour),
	)
	if err := b.fxApp.Err(); err != nil {
		return nil, dig.RootCause(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.startTimeout)
	defer cancel()
	if err := b.fxApp.Start(ctx); err != nil {
		return nil, dig.RootCause(err)
	}

	b.runtime.stop = b.Stop
	return &b.runtime, nil
}

// Start 构建全部模块并绑定监听地址
//
// 等价于 Build() + Server.Listen()
func (b *Bootstrap) Start() (*Runtime, error) {
	rt, err := b.Build()
	if err != nil {
		return nil, err
	}
	if err := rt.Server.Listen(); err != nil {
		_ = b.Stop(context.Background())
		return nil, err
	}
	return rt, nil
}

// Stop 停止应用
func (b *Bootstrap) Stop(ctx context.Context) error {
	if b.fxApp == nil {
		return nil
	}
	stopCtx, cancel := context.WithTimeout(ctx, b.stopTimeout)
	defer cancel()
	return b.fxApp.Stop(stopCtx)
}

// setupModules 组装所有 fx 模块
func (b *Bootstrap) setupModules() []fx.Option {
	modules := []fx.Option{
		// 配置（Tier 0）
		fx.Supply(b.config),

		// 基础层（Tier 1: Foundation）
		FoundationModules(),

		// 传输层（Tier 2: Transport）
		TransportModules(),

		// 网络服务层（Tier 3: Service）
		ServiceModules(),

		// 应用层（Tier 4: Application）
		ApplicationModules(),
	}
	return append(modules, b.fxOptions...)
}

// setupLogging 按配置与环境变量应用日志配置
//
// 环境变量先生效，--json / --no-timestamp 覆盖。
func (b *Bootstrap) setupLogging() {
	lc := logger.DefaultConfig()
	lc.ApplyEnv()
	if b.config.Log.JSON {
		lc.Format = logger.FormatJSON
	}
	lc.NoTimestamp = b.config.Log.NoTimestamp
	if b.logOutput != nil {
		lc.Output = b.logOutput
	}
	logger.Setup(lc)
}

// ============================================================================
//                              Server 提供
// ============================================================================

// serverParams Server 依赖参数
type serverParams struct {
	fx.In

	Config   *config.Config
	Identity *identity.Identity
	Swarm    *swarm.Swarm
	TLS      *tls.Config      `optional:"true"`
	Metrics  *metrics.Metrics `optional:"true"`
}

func provideServer(p serverParams) *Server {
	return NewServer(p.Config, p.Identity, p.Swarm, p.TLS, p.Metrics)
}
