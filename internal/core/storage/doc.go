// Package storage 提供注册记录的持久化存储
//
// 基于 BadgerDB。rendezvous 服务端把每条注册写在 r/<namespace>/<peer>
// 键下，重启时重新加载未过期的注册。
//
//	┌───────────────────────────────┐
//	│ discovery/rendezvous          │
//	└───────────────┬───────────────┘
//	                ▼
//	┌───────────────────────────────┐
//	│ kv.Store  (前缀隔离)          │
//	├───────────────────────────────┤
//	│ engine/badger (BadgerDB)      │
//	└───────────────────────────────┘
//
// 未配置数据库目录时 Module 提供 nil 引擎，注册只保存在内存中。
package storage
