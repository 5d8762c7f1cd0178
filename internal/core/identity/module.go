package identity

import (
	"fmt"

	"go.uber.org/fx"

	"github.com/dep2p/rendezvous-server/config"
)

// ============================================================================
//                              模块定义
// ============================================================================

// Params 模块输入依赖
type Params struct {
	fx.In

	Config *config.Config
}

// ProvideIdentity 按配置加载或生成身份
func ProvideIdentity(p Params) (*Identity, error) {
	id, err := LoadOrGenerate(p.Config.Identity.SecretFile, p.Config.Identity.GenerateSecret)
	if err != nil {
		return nil, fmt.Errorf("Failed to load identity: %w", err)
	}
	return id, nil
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("identity",
		fx.Provide(ProvideIdentity),
	)
}
