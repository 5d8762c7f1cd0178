package dns

import "errors"

// 预定义错误
var (
	// ErrInvalidDNSAddr 无效的 dnsaddr 记录
	ErrInvalidDNSAddr = errors.New("dns: invalid dnsaddr record")

	// ErrMaxDepthExceeded 超过最大递归深度
	ErrMaxDepthExceeded = errors.New("dns: max recursion depth exceeded")

	// ErrNoRecordsFound 未找到 DNS 记录
	ErrNoRecordsFound = errors.New("dns: no DNS records found")

	// ErrNoDialableAddr 解析结果中没有内层传输可拨号的地址
	ErrNoDialableAddr = errors.New("dns: no dialable address after resolution")
)
