package tls

import "errors"

// TLS 材料相关错误
var (
	// ErrIncompleteTLSConfig 私钥与证书只提供了其中一个
	ErrIncompleteTLSConfig = errors.New("Server private key and certificate both have to be provided")

	// ErrIO 读取私钥或证书文件失败
	ErrIO = errors.New("tls: read material failed")

	// ErrInvalidMaterial 私钥或证书无法解析，或二者不匹配
	ErrInvalidMaterial = errors.New("tls: invalid key or certificate")
)
