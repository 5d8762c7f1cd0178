package identity

import "errors"

// ============================================================================
// 错误定义
// ============================================================================

var (
	// ErrNilPrivateKey 私钥为 nil
	ErrNilPrivateKey = errors.New("private key is nil")

	// ErrKeyFileExists 生成模式下密钥文件已存在
	ErrKeyFileExists = errors.New("secret file already exists")

	// ErrKeyFileMissing 加载模式下密钥文件不存在
	ErrKeyFileMissing = errors.New("secret file does not exist")

	// ErrInvalidKeyBytes 密钥文件内容不是 32 字节 Ed25519 种子
	ErrInvalidKeyBytes = errors.New("invalid ed25519 secret key bytes")

	// ErrIO 密钥文件读写失败
	ErrIO = errors.New("secret file i/o error")
)
