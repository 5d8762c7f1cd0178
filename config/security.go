package config

// SecurityConfig 安全配置
//
// Noise 身份认证总是启用；这里只配置 WebSocket 的 TLS 材料。
// 私钥与证书必须同时提供，且只有启用 WebSocket 时才生效。
type SecurityConfig struct {
	// TLSPrivateKey 服务端私钥路径（PEM 或 DER）
	TLSPrivateKey string `json:"tls_private_key,omitempty"`

	// TLSCertificate 服务端证书路径（PEM 或 DER）
	TLSCertificate string `json:"tls_certificate,omitempty"`
}

// DefaultSecurityConfig 返回默认安全配置
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{}
}
