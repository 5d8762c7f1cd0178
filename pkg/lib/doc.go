// Package lib 包含与具体组件无关的基础库
//
//   - crypto: 密钥、签名与 PeerID
//   - multiaddr: 多地址编解码
//   - proto: 线上消息编解码（noise 握手 payload、rendezvous 消息）
//   - record: 签名信封与 peer record
//
// # 使用示例
//
//	import (
//	    "github.com/dep2p/rendezvous-server/pkg/lib/crypto"
//	    "github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
//	)
package lib
