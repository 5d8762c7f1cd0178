// Package rendezvous 包含 /rendezvous/1.0.0 消息的 protobuf 编解码
//
// 与 libp2p rendezvous 规范的 proto2 定义一致：
//
//	message Message {
//	  enum MessageType { REGISTER = 0; REGISTER_RESPONSE = 1; UNREGISTER = 2;
//	                     DISCOVER = 3; DISCOVER_RESPONSE = 4; }
//	  message Register { optional string ns = 1; optional bytes signedPeerRecord = 2;
//	                     optional uint64 ttl = 3; }
//	  message RegisterResponse { optional ResponseStatus status = 1;
//	                             optional string statusText = 2; optional uint64 ttl = 3; }
//	  message Unregister { optional string ns = 1; optional bytes id = 2; }
//	  message Discover { optional string ns = 1; optional uint64 limit = 2;
//	                     optional bytes cookie = 3; }
//	  message DiscoverResponse { repeated Register registrations = 1; optional bytes cookie = 2;
//	                             optional ResponseStatus status = 3; optional string statusText = 4; }
//	  optional MessageType type = 1;
//	  optional Register register = 2;
//	  optional RegisterResponse registerResponse = 3;
//	  optional Unregister unregister = 4;
//	  optional Discover discover = 5;
//	  optional DiscoverResponse discoverResponse = 6;
//	}
//
// 消息在流上以 uvarint 长度前缀分帧。
package rendezvous

import "fmt"

// Message_MessageType 消息类型
type Message_MessageType int32

const (
	Message_REGISTER          Message_MessageType = 0
	Message_REGISTER_RESPONSE Message_MessageType = 1
	Message_UNREGISTER        Message_MessageType = 2
	Message_DISCOVER          Message_MessageType = 3
	Message_DISCOVER_RESPONSE Message_MessageType = 4
)

var messageTypeNames = map[Message_MessageType]string{
	Message_REGISTER:          "REGISTER",
	Message_REGISTER_RESPONSE: "REGISTER_RESPONSE",
	Message_UNREGISTER:        "UNREGISTER",
	Message_DISCOVER:          "DISCOVER",
	Message_DISCOVER_RESPONSE: "DISCOVER_RESPONSE",
}

func (t Message_MessageType) String() string {
	if s, ok := messageTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("MessageType(%d)", int32(t))
}

// Message_ResponseStatus 响应状态
type Message_ResponseStatus int32

const (
	Message_OK                           Message_ResponseStatus = 0
	Message_E_INVALID_NAMESPACE          Message_ResponseStatus = 100
	Message_E_INVALID_SIGNED_PEER_RECORD Message_ResponseStatus = 101
	Message_E_INVALID_TTL                Message_ResponseStatus = 102
	Message_E_INVALID_COOKIE             Message_ResponseStatus = 103
	Message_E_NOT_AUTHORIZED             Message_ResponseStatus = 200
	Message_E_INTERNAL_ERROR             Message_ResponseStatus = 300
	Message_E_UNAVAILABLE                Message_ResponseStatus = 400
)

var responseStatusNames = map[Message_ResponseStatus]string{
	Message_OK:                           "OK",
	Message_E_INVALID_NAMESPACE:          "E_INVALID_NAMESPACE",
	Message_E_INVALID_SIGNED_PEER_RECORD: "E_INVALID_SIGNED_PEER_RECORD",
	Message_E_INVALID_TTL:                "E_INVALID_TTL",
	Message_E_INVALID_COOKIE:             "E_INVALID_COOKIE",
	Message_E_NOT_AUTHORIZED:             "E_NOT_AUTHORIZED",
	Message_E_INTERNAL_ERROR:             "E_INTERNAL_ERROR",
	Message_E_UNAVAILABLE:                "E_UNAVAILABLE",
}

func (s Message_ResponseStatus) String() string {
	if name, ok := responseStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ResponseStatus(%d)", int32(s))
}

// Message_Register 注册请求，也用作发现结果中的单条注册
type Message_Register struct {
	Ns               string
	SignedPeerRecord []byte
	Ttl              *uint64
}

// GetTtl 返回 TTL，未设置时为 0
func (m *Message_Register) GetTtl() uint64 {
	if m == nil || m.Ttl == nil {
		return 0
	}
	return *m.Ttl
}

// Message_RegisterResponse 注册响应
type Message_RegisterResponse struct {
	Status     Message_ResponseStatus
	StatusText string
	Ttl        uint64
}

// Message_Unregister 注销请求，id 字段已废弃
type Message_Unregister struct {
	Ns string
	Id []byte
}

// Message_Discover 发现请求
type Message_Discover struct {
	Ns     string
	Limit  *uint64
	Cookie []byte
}

// GetLimit 返回数量上限，未设置时为 0
func (m *Message_Discover) GetLimit() uint64 {
	if m == nil || m.Limit == nil {
		return 0
	}
	return *m.Limit
}

// Message_DiscoverResponse 发现响应
type Message_DiscoverResponse struct {
	Registrations []*Message_Register
	Cookie        []byte
	Status        Message_ResponseStatus
	StatusText    string
}

// Message 顶层消息
type Message struct {
	Type             Message_MessageType
	Register         *Message_Register
	RegisterResponse *Message_RegisterResponse
	Unregister       *Message_Unregister
	Discover         *Message_Discover
	DiscoverResponse *Message_DiscoverResponse
}

// Uint64 返回 v 的指针，用于可选字段
func Uint64(v uint64) *uint64 {
	return &v
}
