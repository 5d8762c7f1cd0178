// Package noise 实现 libp2p-noise 安全通道
//
// 使用 Noise_XX_25519_ChaChaPoly_SHA256 模式，每条连接生成新的 X25519
// 静态密钥，并用节点的身份密钥对其签名：
//
//	-> e
//	<- e, ee, s, es, payload
//	-> s, se, payload
//
// payload 为 NoiseHandshakePayload，identity_sig 是对
// "noise-libp2p-static-key:" + X25519 静态公钥 的签名。
//
// 握手与传输帧都使用 2 字节大端长度前缀，单帧密文不超过 65535 字节。
//
// # 使用示例
//
//	tpt, err := noise.New(id.PrivateKey())
//	if err != nil {
//	    return err
//	}
//
//	// 服务端
//	sc, err := tpt.SecureInbound(ctx, conn)
//
//	// 客户端（remotePeer 为空时不校验对端身份）
//	sc, err := tpt.SecureOutbound(ctx, conn, remotePeer)
package noise
