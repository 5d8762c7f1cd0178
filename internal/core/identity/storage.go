package identity

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dep2p/rendezvous-server/internal/util/logger"
)

var log = logger.Logger("core/identity")

// ============================================================================
//                              密钥文件
// ============================================================================

// 密钥文件格式：32 字节原始 Ed25519 种子，无任何头部。

const secretFilePerm = 0o600

// LoadOrGenerate 加载或生成节点身份
//
// generate 为真时生成新密钥并以独占方式创建 path（已存在则返回
// ErrKeyFileExists，且不改动原文件）；否则从 path 读取。
func LoadOrGenerate(path string, generate bool) (*Identity, error) {
	if generate {
		id, err := Generate()
		if err != nil {
			return nil, err
		}
		if err := writeSecretFile(path, id.Seed()); err != nil {
			return nil, err
		}
		log.Info("已生成新的密钥文件", "path", path, "peer", id.PeerID().String())
		return id, nil
	}

	seed, err := readSecretFile(path)
	if err != nil {
		return nil, err
	}
	return FromSeed(seed)
}

func readSecretFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("No secret file at %s: %w", path, ErrKeyFileMissing)
		}
		return nil, fmt.Errorf("No secret file at %s: %w: %v", path, ErrIO, err)
	}
	return data, nil
}

// writeSecretFile 创建父目录并独占创建文件
//
// 写入失败时删除残缺文件，避免留下无法加载的密钥。
func writeSecretFile(path string, seed []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("Could not create directory for secret file: %s: %w: %v", dir, ErrIO, err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, secretFilePerm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("Could not generate secret file at %s: %w", path, ErrKeyFileExists)
		}
		return fmt.Errorf("Could not generate secret file at %s: %w: %v", path, ErrIO, err)
	}

	if _, err := f.Write(seed); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write secret file %s: %w: %v", path, ErrIO, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("sync secret file %s: %w: %v", path, ErrIO, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close secret file %s: %w: %v", path, ErrIO, err)
	}
	return nil
}
