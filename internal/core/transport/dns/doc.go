// Package dns 为原始传输提供域名解析层
//
// 包装内层传输（通常是 TCP），拨号前把地址的首个组件解析为 IP：
//
//	/dns4/example.com/tcp/443  -> A 记录
//	/dns6/example.com/tcp/443  -> AAAA 记录
//	/dns/example.com/tcp/443   -> A + AAAA
//	/dnsaddr/example.com       -> TXT _dnsaddr.example.com 中的 dnsaddr= 记录
//
// 查询通过 miekg/dns 直接发往 resolv.conf 中的服务器；没有 resolv.conf
// 时回退到 Go 内置解析器。监听不做解析，直接交给内层传输。
package dns
