// Package rendezvous 实现 /rendezvous/1.0.0 协议的服务端
//
// 节点通过 REGISTER 把签名节点记录登记到命名空间下，其他节点用
// DISCOVER 分页查询。服务端只做三件事：
//
//	REGISTER   校验命名空间、TTL、签名记录与签名者身份，保存或替换
//	           (namespace, peer) 的注册
//	UNREGISTER 移除 (namespace, peer) 的注册，无应答
//	DISCOVER   按命名空间（可为空表示全部）返回 cookie 之后的注册
//
// # TTL
//
// 允许范围 [2h, 72h]，未携带时为 2h。注册到期由时钟定时器移除并上报
// RegistrationExpired。同一节点从多条连接（TCP 与 WebSocket）注册时
// 共享同一条注册，后到的替换先到的。
//
// # Cookie
//
// 8 字节大端注册序号加命名空间。每次注册（含续约）分配新的单调序号，
// 下一次发现只返回序号更大的注册。
//
// # 持久化与限流
//
// 配置了存储引擎时注册写入 BadgerDB（键 r/<namespace>/<peer>），
// 启动时重新装入未过期的注册。配置了 MaxRegisterRate 时按节点限制
// REGISTER 频率，超限应答 E_UNAVAILABLE。
package rendezvous
