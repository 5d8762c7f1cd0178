package config

import "errors"

var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("invalid config")

	// ErrMissingSecretFile 未指定密钥文件
	ErrMissingSecretFile = errors.New("--secret-file is required")

	// ErrMissingListenTCP 未指定 TCP 端口
	ErrMissingListenTCP = errors.New("--listen-tcp is required")

	// ErrInvalidPort 端口超出范围
	ErrInvalidPort = errors.New("port out of range")
)
