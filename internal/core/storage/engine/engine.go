// Package engine 定义注册记录持久化使用的存储引擎接口
//
// 实现位于 engine/badger。
package engine

// Engine 有序键值存储
//
// 所有方法并发安全。
type Engine interface {
	// Get 读取键，不存在时返回 ErrNotFound
	Get(key []byte) ([]byte, error)

	Put(key, value []byte) error

	// Delete 删除键，键不存在不是错误
	Delete(key []byte) error

	// Scan 按键序遍历以 prefix 开头的条目，fn 返回 false 时停止
	//
	// 传给 fn 的切片在回调返回后失效。
	Scan(prefix []byte, fn func(key, value []byte) bool) error

	// Update 把 fn 中的写操作作为一批提交，fn 返回错误时全部丢弃
	Update(fn func(w Writer) error) error

	// Start 启动后台任务（值日志 GC）
	Start() error

	// Close 关闭引擎，重复调用返回 nil
	Close() error
}

// Writer Update 回调中可用的写操作
type Writer interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}
