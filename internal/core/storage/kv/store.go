// Package kv 在存储引擎上划出按前缀隔离的键空间
//
//	registrations := kv.New(eng, []byte("r/"))
//	registrations.PutJSON([]byte("ns/peer"), rec) // 实际键: r/ns/peer
package kv

import (
	"bytes"
	"encoding/json"

	"github.com/dep2p/rendezvous-server/internal/core/storage/engine"
)

// Store 前缀键空间
type Store struct {
	eng    engine.Engine
	prefix []byte
}

// New 创建 Store，所有键自动加上 prefix
func New(eng engine.Engine, prefix []byte) *Store {
	return &Store{eng: eng, prefix: bytes.Clone(prefix)}
}

func (s *Store) key(k []byte) []byte {
	full := make([]byte, 0, len(s.prefix)+len(k))
	full = append(full, s.prefix...)
	return append(full, k...)
}

func (s *Store) Get(key []byte) ([]byte, error) {
	return s.eng.Get(s.key(key))
}

func (s *Store) Put(key, value []byte) error {
	return s.eng.Put(s.key(key), value)
}

func (s *Store) Delete(key []byte) error {
	return s.eng.Delete(s.key(key))
}

// GetJSON 读取并解码 JSON 值
func (s *Store) GetJSON(key []byte, v any) error {
	data, err := s.Get(key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// PutJSON 编码为 JSON 后写入
func (s *Store) PutJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put(key, data)
}

// Scan 遍历 sub 前缀下的条目，回调收到的键已去掉 Store 自身的前缀
func (s *Store) Scan(sub []byte, fn func(key, value []byte) bool) error {
	n := len(s.prefix)
	return s.eng.Scan(s.key(sub), func(key, value []byte) bool {
		return fn(key[n:], value)
	})
}

// Count 统计 sub 前缀下的条目数
func (s *Store) Count(sub []byte) (int, error) {
	n := 0
	err := s.Scan(sub, func(_, _ []byte) bool {
		n++
		return true
	})
	return n, err
}

// Update 在一批写操作中修改 Store
func (s *Store) Update(fn func(tx *Tx) error) error {
	return s.eng.Update(func(w engine.Writer) error {
		return fn(&Tx{store: s, w: w})
	})
}

// Tx Update 回调中的写句柄
type Tx struct {
	store *Store
	w     engine.Writer
}

func (tx *Tx) Put(key, value []byte) error {
	return tx.w.Put(tx.store.key(key), value)
}

func (tx *Tx) Delete(key []byte) error {
	return tx.w.Delete(tx.store.key(key))
}

// PutJSON 编码为 JSON 后写入
func (tx *Tx) PutJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return tx.Put(key, data)
}
