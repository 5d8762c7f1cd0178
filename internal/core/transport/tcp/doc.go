// Package tcp 实现 TCP 传输层
//
// tcp 只建立原始字节流，加密与多路复用由 upgrader 完成。
// 拨出与接受的连接都设置 TCP_NODELAY。
//
// # 地址格式
//
//	/ip4/1.2.3.4/tcp/4001
//	/ip6/::1/tcp/4001
//
// 域名地址（/dns4 等）由 dns 包装层解析后再交给本层。
//
// # 使用示例
//
//	t := tcp.New()
//
//	// 监听
//	l, err := t.Listen(multiaddr.StringCast("/ip4/0.0.0.0/tcp/4001"))
//
//	// 拨号
//	c, err := t.Dial(ctx, multiaddr.StringCast("/ip4/1.2.3.4/tcp/4001"))
package tcp
