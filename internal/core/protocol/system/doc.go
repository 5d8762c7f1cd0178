// Package system 汇集节点自带的系统协议
//
// 目前只有 ping（/ipfs/ping/1.0.0），由 --ping 开关启用。
package system
