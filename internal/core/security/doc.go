// Package security 组合连接认证与 TLS 材料
//
// # 子包
//
//   - noise: libp2p-noise XX 握手与加密连接
//   - tls: WebSocket 监听使用的服务端证书与私钥加载
//
// # Fx 模块
//
//	app := fx.New(
//	    fx.Supply(cfg),
//	    identity.Module(),
//	    security.Module(),
//	)
//
// TLS 材料只有在启用 WebSocket 时生效；只提供私钥或证书其中之一时启动失败。
package security
