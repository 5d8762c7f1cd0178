package config

// LogConfig 日志配置
type LogConfig struct {
	// JSON 以 JSON 格式输出日志
	JSON bool `json:"json"`

	// NoTimestamp 不输出时间戳（日志已由 journald 等打时间戳时使用）
	NoTimestamp bool `json:"no_timestamp"`
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{}
}
