// Package app 组装 rendezvous 服务端进程
//
// Bootstrap 用 Fx 把身份、安全、传输、存储、行为与 Swarm 模块连接起来，
// RunApp 绑定监听地址后运行事件循环，直到上下文取消。
//
// 事件循环是唯一消费 Swarm 事件的地方，只负责记录日志：
//
//	Peer registered            注册成功
//	Peer failed to register    注册被拒绝
//	Registration expired       注册到期
//	Peer unregistered          注销
//	Discovery served           发现请求已应答
//	New listening address      新的监听地址
package app
