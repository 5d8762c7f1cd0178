// Package swarm 管理监听器、连接与流
//
// swarm 位于传输栈与协议行为之间：
//
//   - 每个监听器一个 Accept 循环，每条原始连接在独立 goroutine 中升级
//   - 升级完成的连接接受入站流，用 multistream-select 在行为声明的
//     协议中协商，再交给行为在独立 goroutine 中处理
//   - 监听地址、连接建立与关闭、入站失败以及行为事件按到达顺序
//     进入队列，由 NextEvent 逐个取出
//
// # 快速开始
//
//	tpt, _ := transport.Build(id, false, nil)
//	s, _ := swarm.New(tpt, b)
//	defer s.Close()
//
//	if _, err := s.Listen(multiaddr.StringCast("/ip4/0.0.0.0/tcp/4001")); err != nil {
//	    return err
//	}
//	for {
//	    ev, err := s.NextEvent(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    // ...
//	}
//
// 单条连接的失败只记录日志与指标，并以 IncomingConnectionError 事件
// 上报，不会终止 Swarm。
package swarm
