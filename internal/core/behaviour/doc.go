// Package behaviour 组合节点上运行的协议行为
//
// Aggregate 持有固定的一组可选子行为：Rendezvous 服务端总是存在，
// Ping 按配置启用。禁用的子行为不贡献协议，也不启动定时器。
//
// 子行为上报的事件被包装为 Event，事件循环只需处理一个类型：
//
//	switch {
//	case ev.Rendezvous != nil:
//	case ev.Ping != nil:
//	}
package behaviour
