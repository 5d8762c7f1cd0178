package security

import (
	stdtls "crypto/tls"
	"fmt"

	"go.uber.org/fx"

	"github.com/dep2p/rendezvous-server/config"
	"github.com/dep2p/rendezvous-server/internal/core/identity"
	"github.com/dep2p/rendezvous-server/internal/core/security/noise"
	"github.com/dep2p/rendezvous-server/internal/core/security/tls"
	"github.com/dep2p/rendezvous-server/internal/util/logger"
)

var log = logger.Logger("core/security")

// ============================================================================
//                              模块输入输出
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Config   *config.Config
	Identity *identity.Identity
}

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	// Noise 连接认证
	Noise *noise.Transport

	// TLS WebSocket 服务端 TLS 配置，未启用时为 nil
	TLS *stdtls.Config
}

// ============================================================================
//                              服务提供
// ============================================================================

// ProvideServices 提供模块服务
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	tlsConfig, err := tls.LoadMaterial(
		input.Config.Security.TLSPrivateKey,
		input.Config.Security.TLSCertificate,
		input.Config.Transport.EnableWebSocket,
	)
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("Failed to load TLS material: %w", err)
	}

	nt, err := noise.New(input.Identity.PrivateKey())
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("Failed to create noise transport: %w", err)
	}

	log.Debug("安全模块就绪", "noise", nt.ID(), "tls", tlsConfig != nil)
	return ModuleOutput{Noise: nt, TLS: tlsConfig}, nil
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("security",
		fx.Provide(ProvideServices),
	)
}
