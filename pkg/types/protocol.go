package types

// ProtocolID multistream-select 协议标识
type ProtocolID string

// String 返回协议字符串
func (p ProtocolID) String() string {
	return string(p)
}
