package config

// IdentityConfig 身份配置
type IdentityConfig struct {
	// SecretFile 保存 Ed25519 种子（32 字节原始数据）的文件路径
	SecretFile string `json:"secret_file"`

	// GenerateSecret 为真时生成新密钥写入 SecretFile（文件已存在则失败）
	GenerateSecret bool `json:"generate_secret"`
}

// DefaultIdentityConfig 返回默认身份配置
func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{}
}

// Validate 验证身份配置
func (c IdentityConfig) Validate() error {
	if c.SecretFile == "" {
		return ErrMissingSecretFile
	}
	return nil
}
