package rendezvous

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/dep2p/rendezvous-server/internal/core/storage/engine"
	"github.com/dep2p/rendezvous-server/internal/core/storage/kv"
	"github.com/dep2p/rendezvous-server/pkg/lib/record"
	"github.com/dep2p/rendezvous-server/pkg/types"
)

// keyPrefix 注册记录在存储中的前缀
var keyPrefix = []byte("r/")

// persistedRegistration 持久化的注册记录格式
type persistedRegistration struct {
	Namespace        string `json:"namespace"`
	SignedPeerRecord []byte `json:"signed_peer_record"`
	TTL              uint64 `json:"ttl"`
	ExpiresAt        int64  `json:"expires_at"`
}

// persistentStore BadgerDB 上的注册记录
//
// 键格式: r/{namespace}/{peerID}
// 值格式: JSON 序列化的 persistedRegistration
//
// nil 表示不持久化，所有方法为空操作。
type persistentStore struct {
	kv *kv.Store
}

func newPersistentStore(eng engine.Engine) *persistentStore {
	if eng == nil {
		return nil
	}
	return &persistentStore{kv: kv.New(eng, keyPrefix)}
}

// makeKey peer 的 base58 形式不含 '/'，因此键可以唯一还原
func makeKey(namespace string, peer types.PeerID) []byte {
	return []byte(namespace + "/" + peer.String())
}

func (s *persistentStore) put(reg Registration) error {
	if s == nil {
		return nil
	}
	return s.kv.PutJSON(makeKey(reg.Namespace, reg.Peer), persistedRegistration{
		Namespace:        reg.Namespace,
		SignedPeerRecord: reg.SignedPeerRecord,
		TTL:              reg.TTL,
		ExpiresAt:        reg.ExpiresAt.UnixNano(),
	})
}

func (s *persistentStore) delete(namespace string, peer types.PeerID) error {
	if s == nil {
		return nil
	}
	return s.kv.Delete(makeKey(namespace, peer))
}

// load 读取全部未过期的注册，已过期或无法解析的条目被删除
func (s *persistentStore) load(now time.Time) ([]Registration, error) {
	if s == nil {
		return nil, nil
	}

	var (
		regs  []Registration
		stale [][]byte
	)
	err := s.kv.Scan(nil, func(key, value []byte) bool {
		var p persistedRegistration
		if err := json.Unmarshal(value, &p); err != nil {
			log.Warn("丢弃损坏的注册记录", "key", string(key), "error", err)
			stale = append(stale, bytes.Clone(key))
			return true
		}

		expiresAt := time.Unix(0, p.ExpiresAt)
		if !now.Before(expiresAt) {
			stale = append(stale, bytes.Clone(key))
			return true
		}

		_, rec, err := record.ConsumePeerRecord(p.SignedPeerRecord)
		if err != nil {
			log.Warn("丢弃无法验证的注册记录", "key", string(key), "error", err)
			stale = append(stale, bytes.Clone(key))
			return true
		}

		regs = append(regs, Registration{
			Namespace:        p.Namespace,
			Peer:             rec.PeerID,
			Addrs:            rec.Addrs,
			TTL:              p.TTL,
			SignedPeerRecord: p.SignedPeerRecord,
			ExpiresAt:        expiresAt,
		})
		return true
	})
	if err != nil {
		return nil, err
	}

	if len(stale) > 0 {
		err := s.kv.Update(func(tx *kv.Tx) error {
			for _, key := range stale {
				if err := tx.Delete(key); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		log.Debug("已删除过期注册记录", "count", len(stale))
	}
	return regs, nil
}
