// Package tls 加载 WebSocket 监听使用的服务端 TLS 材料
//
// 私钥与证书文件均可为 PEM 或原始 DER 编码。证书文件可以包含
// 完整证书链（PEM 多块）。TLS 只在 WebSocket 启用时有意义。
package tls

import (
	"bytes"
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/dep2p/rendezvous-server/internal/util/logger"
)

var log = logger.Logger("core/security/tls")

// 未启用 WebSocket 时提供 TLS 参数的警告文本
const ignoredWarning = "The provided SSL parameters won't have any affect, because you did not activate websockets"

// ============================================================================
//                              材料加载
// ============================================================================

// LoadMaterial 按参数组合构建服务端 TLS 配置
//
//   - 两者都为空：返回 nil, nil
//   - 只提供一个：ErrIncompleteTLSConfig
//   - 两者都有但未启用 WebSocket：记录警告，返回 nil, nil
//   - 两者都有且启用 WebSocket：读取文件并构建 *tls.Config
func LoadMaterial(keyPath, certPath string, websocketEnabled bool) (*tls.Config, error) {
	switch {
	case keyPath == "" && certPath == "":
		return nil, nil
	case keyPath == "" || certPath == "":
		return nil, ErrIncompleteTLSConfig
	}

	if !websocketEnabled {
		log.Warn(ignoredWarning)
		return nil, nil
	}

	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key %s: %w: %v", keyPath, ErrIO, err)
	}
	certData, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("read certificate %s: %w: %v", certPath, ErrIO, err)
	}

	cert, err := buildCertificate(keyData, certData)
	if err != nil {
		return nil, err
	}

	log.Debug("已加载 TLS 材料", "key", keyPath, "cert", certPath, "chain", len(cert.Certificate))
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}, nil
}

// buildCertificate 解析私钥与证书链并校验二者匹配
func buildCertificate(keyData, certData []byte) (tls.Certificate, error) {
	chain, err := parseCertificateChain(certData)
	if err != nil {
		return tls.Certificate{}, err
	}
	key, err := parsePrivateKey(keyData)
	if err != nil {
		return tls.Certificate{}, err
	}

	leaf, err := x509.ParseCertificate(chain[0])
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: parse leaf certificate: %v", ErrInvalidMaterial, err)
	}

	pub, ok := key.(interface{ Public() crypto.PublicKey })
	if !ok {
		return tls.Certificate{}, fmt.Errorf("%w: unsupported private key %T", ErrInvalidMaterial, key)
	}
	eq, ok := leaf.PublicKey.(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !eq.Equal(pub.Public()) {
		return tls.Certificate{}, fmt.Errorf("%w: private key does not match certificate", ErrInvalidMaterial)
	}

	return tls.Certificate{
		Certificate: chain,
		PrivateKey:  key,
		Leaf:        leaf,
	}, nil
}

// parseCertificateChain 解析 PEM 证书链或单个 DER 证书
func parseCertificateChain(data []byte) ([][]byte, error) {
	if !isPEM(data) {
		if _, err := x509.ParseCertificate(data); err != nil {
			return nil, fmt.Errorf("%w: parse der certificate: %v", ErrInvalidMaterial, err)
		}
		return [][]byte{data}, nil
	}

	var chain [][]byte
	for rest := data; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			chain = append(chain, block.Bytes)
		}
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: no CERTIFICATE block found", ErrInvalidMaterial)
	}
	return chain, nil
}

// parsePrivateKey 依次尝试 PKCS#8、PKCS#1 与 SEC1 编码
func parsePrivateKey(data []byte) (crypto.PrivateKey, error) {
	der := data
	if isPEM(data) {
		block, _ := pem.Decode(data)
		if block == nil {
			return nil, fmt.Errorf("%w: no PEM block in private key", ErrInvalidMaterial)
		}
		der = block.Bytes
	}

	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("%w: unrecognised private key encoding", ErrInvalidMaterial)
}

func isPEM(data []byte) bool {
	return bytes.Contains(data, []byte("-----BEGIN "))
}
